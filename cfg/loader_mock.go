package cfg

type MockLoader struct {
	Token string
}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{Token: "test-token"}, nil
}

func (ml *MockLoader) Load() (*Config, error) {
	return &Config{
		// App
		App: App{
			Name:     "github-stats-pipeline",
			Version:  "0.0.1",
			LogLevel: "debug",
		},

		// Mysql
		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "github_stats",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		// GithubApi
		GithubApi: GithubApi{
			AccessToken:          ml.Token,
			ApiUrl:               "https://api.github.com/",
			PerPage:              100,
			MaxPages:             10,
			TimeoutSec:           5,
			SafetyMarginSec:      5,
			LowWaterMark:         5,
			MaxRetries:           1,
			SecondaryLimitMaxMin: 1,
		},

		// Kafka
		Kafka: Kafka{
			Brokers:      []string{"localhost:9092"},
			Subscription: "gh-subscription",
			Topics: Topics{
				Commits: "github-commits",
				Lang:    "github-lang",
				Tdd:     "github-tdd",
				TddCicd: "github-tdd-cicd",
			},
		},

		Crawl: Crawl{DaysBack: 6},

		Storage: Storage{
			LogDir: "data",
			Files: Topics{
				Commits: "data_commits.jsonl",
				Lang:    "data_lang.jsonl",
				Tdd:     "data_tdd.jsonl",
				TddCicd: "data_tdd_cicd.jsonl",
			},
		},

		Report: Report{Top: 10, Driver: "sqlite", SqlPath: ":memory:"},
	}, nil
}
