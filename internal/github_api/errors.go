package githubapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"
	"github.com/thep200/github-stats-pipeline/internal/limiter"
)

// ErrNoCommits is returned for HTTP 409 on the commit list, which GitHub sends for
// an empty repository. Pagination treats it as the end of history.
var ErrNoCommits = errors.New("no commits: conflict response")

// RemoteAPIError is a non-throttling, non-200 answer. It is not transient and
// must not be retried.
type RemoteAPIError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("GitHub API error on %s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Body)
}

// IsStatus reports whether err is a RemoteAPIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, limiter.ErrRateLimitExceeded) {
		return err
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		body := errResp.Message
		for _, e := range errResp.Errors {
			body += "; " + e.Error()
		}
		return &RemoteAPIError{Op: op, Status: errResp.Response.StatusCode, Body: body}
	}
	return fmt.Errorf("%s: %w", op, err)
}
