package limiter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// ErrRateLimitExceeded means the quota was still exhausted after every retry.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimitState is what the last response said about the quota.
type RateLimitState struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Known     bool
}

type Policy struct {
	SafetyMargin time.Duration
	LowWaterMark int
	MaxRetries   int
}

func PolicyFromConfig(config *cfg.Config) Policy {
	return Policy{
		SafetyMargin: config.SafetyMargin(),
		LowWaterMark: config.GithubApi.LowWaterMark,
		MaxRetries:   config.GithubApi.MaxRetries,
	}
}

// Call is one remote request.
type Call func(ctx context.Context) (*github.Response, error)

// Guard wraps the calls of one call site. A throttled call is retried after the
// quota resets; a successful call that leaves the quota under the low-water mark
// holds the caller until the reset.
type Guard struct {
	Logger log.Logger
	Name   string
	policy Policy
	clock  Clock
	pacer  *RateLimiter
	mu     sync.Mutex
	state  RateLimitState
}

func NewGuard(logger log.Logger, name string, policy Policy, clock Clock) *Guard {
	if clock == nil {
		clock = RealClock{}
	}
	return &Guard{
		Logger: logger,
		Name:   name,
		policy: policy,
		clock:  clock,
	}
}

// WithPacer spaces call starts to at most perSecond; zero disables pacing.
func (g *Guard) WithPacer(perSecond int) *Guard {
	if perSecond > 0 {
		g.pacer = NewRateLimiter(perSecond, g.clock)
	}
	return g
}

func (g *Guard) State() RateLimitState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) Do(ctx context.Context, call Call) (*github.Response, error) {
	for attempt := 0; ; attempt++ {
		if g.pacer != nil {
			if err := g.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := call(ctx)
		g.observe(resp)

		reset, throttled := g.throttleReset(resp, err)
		if !throttled {
			if err != nil {
				return resp, err
			}
			if err := g.holdIfLow(ctx, resp); err != nil {
				return resp, err
			}
			return resp, nil
		}

		if attempt >= g.policy.MaxRetries {
			return resp, fmt.Errorf("%s: %w after %d retries: %w", g.Name, ErrRateLimitExceeded, attempt, err)
		}

		wait := g.waitUntil(reset)
		g.Logger.Warn(ctx, "Rate limit hit on %s, sleeping %v until %s", g.Name, wait.Round(time.Second), reset.Format(time.RFC3339))
		if err := g.clock.Sleep(ctx, wait); err != nil {
			return resp, err
		}
	}
}

// waitUntil is max(0, reset-now) plus the safety margin.
func (g *Guard) waitUntil(reset time.Time) time.Duration {
	wait := reset.Sub(g.clock.Now())
	if wait < 0 {
		wait = 0
	}
	return wait + g.policy.SafetyMargin
}

func (g *Guard) observe(resp *github.Response) {
	if resp == nil || resp.Response == nil || resp.Header.Get(headerRateRemaining) == "" {
		return
	}
	g.mu.Lock()
	g.state = RateLimitState{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
		Known:     true,
	}
	g.mu.Unlock()
}

func (g *Guard) holdIfLow(ctx context.Context, resp *github.Response) error {
	if resp == nil || resp.Response == nil || resp.Header.Get(headerRateRemaining) == "" {
		return nil
	}
	if resp.Rate.Remaining >= g.policy.LowWaterMark {
		return nil
	}
	reset := resp.Rate.Reset.Time
	wait := g.waitUntil(reset)
	g.Logger.Warn(ctx, "Low rate limit on %s (remaining=%d), sleeping %v", g.Name, resp.Rate.Remaining, wait.Round(time.Second))
	return g.clock.Sleep(ctx, wait)
}

// throttleReset reports whether err is a throttling signal and when the quota resets.
func (g *Guard) throttleReset(resp *github.Response, err error) (time.Time, bool) {
	if err == nil {
		return time.Time{}, false
	}
	now := g.clock.Now()

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		if rateErr.Rate.Reset.Time.IsZero() {
			return now, true
		}
		return rateErr.Rate.Reset.Time, true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if abuseErr.RetryAfter != nil {
			return now.Add(*abuseErr.RetryAfter), true
		}
		if reset, ok := resetHeader(abuseErr.Response); ok {
			return reset, true
		}
		return now, true
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusForbidden {
		if reset, ok := resetHeader(errResp.Response); ok {
			return reset, true
		}
	}
	return time.Time{}, false
}

func resetHeader(r *http.Response) (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	raw := r.Header.Get(headerRateReset)
	if raw == "" {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
