package model

import (
	"context"
	"fmt"
	"time"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/db"
	"github.com/thep200/github-stats-pipeline/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summary is one ranked row of a report, keyed by (kind, key).
type Summary struct {
	Model
	ID    uint    `json:"id" gorm:"primaryKey"`
	Kind  string  `json:"kind" gorm:"column:kind;type:varchar(32);not null;uniqueIndex:idx_summary_kind_key"`
	Key   string  `json:"key" gorm:"column:item_key;type:varchar(255);not null;uniqueIndex:idx_summary_kind_key"`
	Rank  int     `json:"rank" gorm:"column:position;not null"`
	Count int     `json:"count" gorm:"column:count;default:0"`
	Share float64 `json:"share" gorm:"column:share;default:0"`
}

func NewSummary(config *cfg.Config, logger log.Logger, database *db.Database) (*Summary, error) {
	summary := &Summary{
		Model: Model{
			Config:   config,
			Logger:   logger,
			Database: database,
		},
	}
	return summary, nil
}

func (s *Summary) TableName() string {
	return "summaries"
}

// ReplaceKind makes rows for kind match entries exactly: stale keys are removed and
// the rest are upserted.
func (s *Summary) ReplaceKind(kind Kind, entries []Entry, total int) error {
	ctx := context.Background()
	database, err := s.Database.Db()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	now := time.Now()
	rows := make([]Summary, 0, len(entries))
	keys := make([]string, 0, len(entries))
	for i, e := range entries {
		share := 0.0
		if total > 0 {
			share = float64(e.Count) / float64(total)
		}
		key := TruncateString(e.Key, 250)
		keys = append(keys, key)
		rows = append(rows, Summary{
			Model: Model{CreatedAt: now, UpdatedAt: now},
			Kind:  string(kind),
			Key:   key,
			Rank:  i + 1,
			Count: e.Count,
			Share: share,
		})
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		stale := tx.Where("kind = ?", string(kind))
		if len(keys) > 0 {
			stale = stale.Where("item_key NOT IN ?", keys)
		}
		if err := stale.Delete(&Summary{}).Error; err != nil {
			return fmt.Errorf("failed to delete stale summaries: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "count", "share", "updated_at"}),
		}).CreateInBatches(rows, 100)
		if result.Error != nil {
			return fmt.Errorf("failed to upsert summaries: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to save %s summaries: %v", kind, err)
		return err
	}

	s.Logger.Info(ctx, "Saved %d %s summaries", len(rows), kind)
	return nil
}

// ListKind returns stored rows for kind ordered by rank.
func (s *Summary) ListKind(kind Kind) ([]Summary, error) {
	database, err := s.Database.Db()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	var rows []Summary
	if err := database.Where("kind = ?", string(kind)).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return rows, nil
}
