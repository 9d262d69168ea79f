package classifier

import (
	"context"
	"strings"

	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// CIIndicators are matched against lower-cased top-level names, by equality or
// substring.
var CIIndicators = []string{
	".github/workflows",
	".travis.yml",
	".circleci",
	"jenkinsfile",
	".gitlab-ci.yml",
	"azure-pipelines.yml",
}

const (
	githubDir    = ".github"
	workflowsDir = "workflows"
)

// Lister lists one directory of a repository.
type Lister interface {
	ListContents(ctx context.Context, owner, repo, path string) ([]model.ContentEntry, error)
}

type CI struct {
	Logger log.Logger
	lister Lister
}

func NewCI(logger log.Logger, lister Lister) *CI {
	return &CI{Logger: logger, lister: lister}
}

// HasCI checks the top-level listing; a .github directory costs one more listing
// to look for workflows. Errors on that listing only rule out that branch.
func (c *CI) HasCI(ctx context.Context, repo model.RepositoryRecord, listing []model.ContentEntry) bool {
	for _, entry := range listing {
		name := strings.ToLower(entry.Name)
		for _, indicator := range CIIndicators {
			if name == indicator || strings.Contains(name, indicator) {
				return true
			}
		}
		if entry.IsDir() && name == githubDir && c.hasWorkflows(ctx, repo, entry.Name) {
			return true
		}
	}
	return false
}

func (c *CI) hasWorkflows(ctx context.Context, repo model.RepositoryRecord, dir string) bool {
	nested, err := c.lister.ListContents(ctx, repo.Owner, repo.Name, dir)
	if err != nil {
		c.Logger.Warn(ctx, "Cannot list %s of %s: %v", dir, repo.FullName, err)
		return false
	}
	for _, entry := range nested {
		if strings.ToLower(entry.Name) == workflowsDir {
			return true
		}
	}
	return false
}
