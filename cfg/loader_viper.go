package cfg

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ViperLoader struct {
	v                     *viper.Viper
	paths                 []string
	watch                 bool
	once                  sync.Once
	mu                    sync.RWMutex
	cfg                   *Config
	configChangeCallbacks []func(*Config)
}

// NewViperLoader reads mode.yaml from the given directories, cfg/yaml by default.
func NewViperLoader(paths ...string) (*ViperLoader, error) {
	if len(paths) == 0 {
		paths = []string{"cfg/yaml"}
	}
	return &ViperLoader{
		v:                     viper.New(),
		paths:                 paths,
		watch:                 true,
		configChangeCallbacks: make([]func(*Config), 0),
	}, nil
}

func (yl *ViperLoader) Load() (*Config, error) {
	var err error
	yl.once.Do(func() {
		err = yl.loadConfig()
		if err == nil && yl.IsWatchChange() {
			yl.v.OnConfigChange(func(e fsnotify.Event) {
				fmt.Printf("[INFO][CONFIG] Config file changed: %s\n", e.Name)
				if errReload := yl.reloadConfig(); errReload != nil {
					fmt.Printf("[ERROR][CONFIG] Failed to reload config: %v\n", errReload)
				}
			})
			yl.v.WatchConfig()
		}
	})

	if err != nil {
		return nil, err
	}

	yl.mu.RLock()
	defer yl.mu.RUnlock()
	return yl.cfg, nil
}

func (yl *ViperLoader) IsWatchChange() bool {
	return yl.watch && yl.v.ConfigFileUsed() != ""
}

// DisableWatch must be called before Load.
func (yl *ViperLoader) DisableWatch() {
	yl.watch = false
}

func (yl *ViperLoader) RegisterConfigChangeCallback(callback func(*Config)) {
	yl.mu.Lock()
	yl.configChangeCallbacks = append(yl.configChangeCallbacks, callback)
	yl.mu.Unlock()
}

func (yl *ViperLoader) loadConfig() error {
	// A missing .env is fine, the token may come from the real environment
	_ = godotenv.Load()

	for key, value := range Defaults {
		yl.v.SetDefault(key, value)
	}
	for key, env := range EnvBindings {
		if err := yl.v.BindEnv(key, env); err != nil {
			return fmt.Errorf("[ERROR][CONFIG] failed to bind %s: %w", env, err)
		}
	}

	for _, p := range yl.paths {
		yl.v.AddConfigPath(p)
	}
	yl.v.SetConfigName("mode")
	yl.v.SetConfigType("yaml")
	if err := yl.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("[ERROR][CONFIG] failed to read config file: %w", err)
		}
		fmt.Println("[WARN][CONFIG] mode.yaml not found, using defaults and environment")
	}

	cfg, err := yl.unmarshal()
	if err != nil {
		return err
	}

	yl.mu.Lock()
	yl.cfg = cfg
	yl.mu.Unlock()

	return nil
}

func (yl *ViperLoader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := yl.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (yl *ViperLoader) reloadConfig() error {
	cfg, err := yl.unmarshal()
	if err != nil {
		return err
	}

	yl.mu.Lock()
	yl.cfg = cfg

	// Notify all registered callbacks
	callbacks := make([]func(*Config), len(yl.configChangeCallbacks))
	copy(callbacks, yl.configChangeCallbacks)
	yl.mu.Unlock()
	for _, callback := range callbacks {
		go callback(cfg)
	}

	fmt.Println("[INFO][CONFIG] Configuration reloaded successfully")
	return nil
}
