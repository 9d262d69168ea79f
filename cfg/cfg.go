package cfg

import (
	"fmt"
	"time"
)

type (
	App struct {
		Name     string
		Version  string
		LogLevel string `mapstructure:"log_level"`
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int `mapstructure:"max_idle_connection"`
		MaxOpenConnection     int `mapstructure:"max_open_connection"`
		MaxLifeTimeConnection int `mapstructure:"max_life_time_connection"`
	}

	GithubApi struct {
		AccessToken       string `mapstructure:"access_token"`
		ApiUrl            string `mapstructure:"api_url"`
		PerPage           int    `mapstructure:"per_page"`
		MaxPages          int    `mapstructure:"max_pages"`
		TimeoutSec        int    `mapstructure:"timeout_sec"`
		RequestsPerSecond int    `mapstructure:"requests_per_second"`
		// Rate limit policy
		SafetyMarginSec      int `mapstructure:"safety_margin_sec"`
		LowWaterMark         int `mapstructure:"low_water_mark"`
		MaxRetries           int `mapstructure:"max_retries"`
		SecondaryLimitMaxMin int `mapstructure:"secondary_limit_max_min"`
	}

	Topics struct {
		Commits string
		Lang    string
		Tdd     string
		TddCicd string `mapstructure:"tdd_cicd"`
	}

	Kafka struct {
		Brokers      []string
		Subscription string
		Topics       Topics
	}

	Crawl struct {
		From     string
		To       string
		DaysBack int    `mapstructure:"days_back"`
		Schedule string // cron spec, empty runs once
	}

	Storage struct {
		LogDir string `mapstructure:"log_dir"`
		Files  Topics
	}

	Report struct {
		Top     int
		Store   bool
		Driver  string // mysql | sqlite
		SqlPath string `mapstructure:"sql_path"`
	}
)

type Config struct {
	App       App
	Mysql     Mysql
	GithubApi GithubApi `mapstructure:"github_api"`
	Kafka     Kafka
	Crawl     Crawl
	Storage   Storage
	Report    Report
}

// Search results stop at 1,000 items no matter how pages are sized.
const SearchResultCeiling = 1000

func (c *Config) Timeout() time.Duration {
	if c.GithubApi.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.GithubApi.TimeoutSec) * time.Second
}

func (c *Config) SafetyMargin() time.Duration {
	return time.Duration(c.GithubApi.SafetyMarginSec) * time.Second
}

// For picks the entry of the named statistic kind, empty when unknown.
func (t Topics) For(kind string) string {
	switch kind {
	case "commits":
		return t.Commits
	case "lang":
		return t.Lang
	case "tdd":
		return t.Tdd
	case "tdd_cicd":
		return t.TddCicd
	}
	return ""
}

// List returns the entries in a fixed order: commits, lang, tdd, tdd_cicd.
func (t Topics) List() []string {
	return []string{t.Commits, t.Lang, t.Tdd, t.TddCicd}
}

func (t Topics) duplicate() (string, bool) {
	seen := make(map[string]bool, 4)
	for _, v := range t.List() {
		if seen[v] {
			return v, true
		}
		seen[v] = true
	}
	return "", false
}

// TopicList returns topics in a fixed order: commits, lang, tdd, tdd_cicd.
func (c *Config) TopicList() []string {
	return c.Kafka.Topics.List()
}

// ValidateProducer checks what a crawl needs on top of Validate.
func (c *Config) ValidateProducer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.GithubApi.AccessToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	return nil
}

func (c *Config) Validate() error {
	gh := c.GithubApi
	if gh.PerPage <= 0 || gh.PerPage > 100 {
		return &ConfigError{Field: "github_api.per_page", Message: "must be within 1..100"}
	}
	if gh.MaxPages <= 0 {
		return &ConfigError{Field: "github_api.max_pages", Message: "must be positive"}
	}
	if gh.MaxRetries < 0 || gh.LowWaterMark < 0 || gh.SafetyMarginSec < 0 {
		return &ConfigError{Field: "github_api", Message: "rate limit settings must not be negative"}
	}
	for _, topic := range c.TopicList() {
		if topic == "" {
			return &ConfigError{Field: "kafka.topics", Message: "every statistic kind needs a topic"}
		}
	}
	if c.Kafka.Subscription == "" {
		return &ConfigError{Field: "kafka.subscription", Message: "shared subscription name is required"}
	}
	if topic, dup := c.Kafka.Topics.duplicate(); dup {
		return &ConfigError{Field: "kafka.topics", Message: fmt.Sprintf("topic %q is used by more than one statistic kind", topic)}
	}
	f := c.Storage.Files
	if f.Commits == "" || f.Lang == "" || f.Tdd == "" || f.TddCicd == "" {
		return &ConfigError{Field: "storage.files", Message: "every statistic kind needs a log file"}
	}
	if file, dup := f.duplicate(); dup {
		return &ConfigError{Field: "storage.files", Message: fmt.Sprintf("log file %q is used by more than one statistic kind", file)}
	}
	switch c.Report.Driver {
	case "", "mysql", "sqlite":
	default:
		return &ConfigError{Field: "report.driver", Message: "must be 'mysql' or 'sqlite'"}
	}
	return nil
}

type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("[ERROR][CONFIG] %s: %s", e.Field, e.Message)
}
