// Package classifier decides from a repository's top-level listing whether it
// carries unit tests and continuous integration configuration.
package classifier

import (
	"strings"

	"github.com/thep200/github-stats-pipeline/internal/model"
)

// HasTests looks at the top level only. Directories match on their name or path
// suffix regardless of case; files match the language's patterns.
func HasTests(listing []model.ContentEntry, language string) bool {
	rule := RuleFor(language)
	for _, entry := range listing {
		switch {
		case entry.IsDir():
			if rule.matchDir(entry) {
				return true
			}
		case entry.IsFile():
			if rule.matchFile(entry.Name) {
				return true
			}
		}
	}
	return false
}

func (r Rule) matchDir(entry model.ContentEntry) bool {
	name := strings.ToLower(entry.Name)
	path := strings.ToLower(entry.Path)
	for _, d := range r.Dirs {
		if name == d || path == d || strings.HasSuffix(path, "/"+d) {
			return true
		}
	}
	return false
}

func (r Rule) matchFile(name string) bool {
	for _, re := range r.Files {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
