package model

import "time"

const UnknownLanguage = "Unknown"

// RepositoryRecord is one search hit, never persisted.
type RepositoryRecord struct {
	Owner         string
	Name          string
	FullName      string
	Language      string
	DefaultBranch string
	CreatedAt     time.Time
}

// LanguageOrUnknown maps a missing primary language to "Unknown".
func (r RepositoryRecord) LanguageOrUnknown() string {
	if r.Language == "" {
		return UnknownLanguage
	}
	return r.Language
}

const (
	ContentFile = "file"
	ContentDir  = "dir"
)

// ContentEntry is one item of a repository directory listing.
type ContentEntry struct {
	Name string
	Path string
	Type string
}

func (e ContentEntry) IsDir() bool {
	return e.Type == ContentDir
}

func (e ContentEntry) IsFile() bool {
	return e.Type == ContentFile
}

type ClassificationResult struct {
	Repo     RepositoryRecord
	HasTests bool
	HasCI    bool
}
