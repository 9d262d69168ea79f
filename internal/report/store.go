package report

import (
	"fmt"

	"github.com/thep200/github-stats-pipeline/internal/model"
)

// Store keeps the latest ranking of every kind in the summaries table.
type Store struct {
	summary *model.Summary
}

func NewStore(summary *model.Summary) *Store {
	return &Store{summary: summary}
}

// Save replaces each kind's rows with its top entries; top <= 0 keeps all.
func (s *Store) Save(report *Report, top int) error {
	for _, section := range report.Sections {
		if err := s.summary.ReplaceKind(section.Kind, section.Totals.Top(top), section.Totals.Total()); err != nil {
			return fmt.Errorf("failed to store %s: %w", section.Kind, err)
		}
	}
	return nil
}

// Saved reads back the stored rows of every kind, ranked.
func (s *Store) Saved() (map[model.Kind][]model.Summary, error) {
	saved := make(map[model.Kind][]model.Summary, len(model.Kinds))
	for _, kind := range model.Kinds {
		rows, err := s.summary.ListKind(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to read stored %s: %w", kind, err)
		}
		saved[kind] = rows
	}
	return saved, nil
}
