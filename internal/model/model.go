package model

import (
	"time"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/db"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

type Model struct {
	Config    *cfg.Config  `gorm:"-"`
	Logger    log.Logger   `gorm:"-"`
	Database  *db.Database `gorm:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
