package cfg

import (
	"sync"
)

var (
	loader     Loader
	loaderOnce sync.Once
)

type Loader interface {
	Load() (*Config, error)
}

func NewLoader(l Loader) (Loader, error) {
	loaderOnce.Do(func() {
		loader = l
	})
	return loader, nil
}

// Defaults mirror cfg/yaml/mode.yaml so a missing key never yields a zero value.
var Defaults = map[string]interface{}{
	"app.name":                           "github-stats-pipeline",
	"app.version":                        "0.1.0",
	"app.log_level":                      "info",
	"github_api.api_url":                 "https://api.github.com/",
	"github_api.per_page":                100,
	"github_api.max_pages":               10,
	"github_api.timeout_sec":             30,
	"github_api.requests_per_second":     0,
	"github_api.safety_margin_sec":       5,
	"github_api.low_water_mark":          5,
	"github_api.max_retries":             1,
	"github_api.secondary_limit_max_min": 60,
	"kafka.brokers":                      []string{"localhost:9092"},
	"kafka.subscription":                 "gh-subscription",
	"kafka.topics.commits":               "github-commits",
	"kafka.topics.lang":                  "github-lang",
	"kafka.topics.tdd":                   "github-tdd",
	"kafka.topics.tdd_cicd":              "github-tdd-cicd",
	"crawl.days_back":                    6,
	"storage.log_dir":                    "data",
	"storage.files.commits":              "data_commits.jsonl",
	"storage.files.lang":                 "data_lang.jsonl",
	"storage.files.tdd":                  "data_tdd.jsonl",
	"storage.files.tdd_cicd":             "data_tdd_cicd.jsonl",
	"report.top":                         10,
	"report.driver":                      "sqlite",
	"report.sql_path":                    "data/report.db",
	"mysql.host":                         "127.0.0.1",
	"mysql.port":                         "3306",
	"mysql.database":                     "github_stats",
	"mysql.max_idle_connection":          10,
	"mysql.max_open_connection":          100,
	"mysql.max_life_time_connection":     3600,
}

// Env bindings, checked after .env has been loaded.
var EnvBindings = map[string]string{
	"github_api.access_token": "GITHUB_TOKEN",
	"kafka.brokers":           "BROKER_URL",
	"mysql.password":          "MYSQL_PASSWORD",
}
