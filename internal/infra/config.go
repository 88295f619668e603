package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"book_replay/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	MinBookDepth = 1
	MaxBookDepth = 10
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 일부 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		Path       string `yaml:"path"`
		Tolerant   bool   `yaml:"tolerant"`    // skip side/price consistency checks
		LogComment bool   `yaml:"log_comment"` // echo '#' lines to the log
		InboxSize  int    `yaml:"inbox_size"`
	} `yaml:"feed"`

	Book struct {
		Depth     int `yaml:"depth"`     // levels per side in a snapshot
		Interval  int `yaml:"interval"`  // mutations before a snapshot attempt
		Tolerance int `yaml:"tolerance"` // mutations before the sanity check activates
	} `yaml:"book"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used for keys missing from the file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "book-replay"
	cfg.Feed.Tolerant = true
	cfg.Feed.InboxSize = 1024
	cfg.Book.Depth = 5
	cfg.Book.Interval = 10
	cfg.Book.Tolerance = 10
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Feed.Path) == "" {
		return &domain.ConfigError{Field: "feed.path", Err: errors.New("feed file is required")}
	}
	if c.Feed.InboxSize <= 0 {
		return &domain.ConfigError{Field: "feed.inbox_size", Err: errors.New("must be greater than 0")}
	}

	if c.Book.Depth < MinBookDepth || c.Book.Depth > MaxBookDepth {
		return &domain.ConfigError{
			Field: "book.depth",
			Err:   fmt.Errorf("must be in range [%d - %d], got %d", MinBookDepth, MaxBookDepth, c.Book.Depth),
		}
	}
	if c.Book.Interval <= 0 {
		return &domain.ConfigError{Field: "book.interval", Err: errors.New("must be greater than 0")}
	}
	if c.Book.Tolerance < 0 {
		return &domain.ConfigError{Field: "book.tolerance", Err: errors.New("must be greater equal to 0")}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("REPLAY_FEED_PATH"); path != "" {
		cfg.Feed.Path = path
	}
	if level := os.Getenv("REPLAY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if path := os.Getenv("REPLAY_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
		cfg.Storage.Enabled = true
	}
}
