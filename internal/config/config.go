// Package config holds the wikihop configuration file model.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid value")

type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Search SearchConfig `yaml:"search"`
	Render RenderConfig `yaml:"render"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Import ImportConfig `yaml:"import"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // memory, aof, sqlite, badger
	Path    string `yaml:"path"`
}

type SearchConfig struct {
	MaxRedirectDepth int           `yaml:"max_redirect_depth"`
	Normalization    string        `yaml:"normalization"` // none, first-letter, word-initial
	MaxExplored      int           `yaml:"max_explored"`  // 0 = unlimited
	Timeout          time.Duration `yaml:"timeout"`       // 0 = unlimited
	ProgressEvery    int           `yaml:"progress_every"`
	DefaultStart     string        `yaml:"default_start"`
	DefaultGoal      string        `yaml:"default_goal"`
}

type RenderConfig struct {
	BaseURL string `yaml:"base_url"`
	Color   string `yaml:"color"` // auto, always, never
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AuthToken       string        `yaml:"auth_token"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type ImportConfig struct {
	BatchSize int `yaml:"batch_size"` // 0 = backend default
}

// DefaultConfig returns a configuration that searches a local SQLite table.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: string(table.BackendSQLite),
			Path:    "completed-table.db",
		},
		Search: SearchConfig{
			MaxRedirectDepth: search.MaxRedirectDepth,
			Normalization:    search.NormalizeFirstLetter,
			ProgressEvery:    search.DefaultProgressEvery,
			DefaultStart:     "Bedford",
			DefaultGoal:      "Obesity",
		},
		Render: RenderConfig{
			BaseURL: "https://en.wikipedia.org/wiki/",
			Color:   "auto",
		},
		Server: ServerConfig{
			Addr:            ":9094",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be fixed up later.
func (c Config) Validate() error {
	if _, err := table.ParseBackend(c.Store.Backend); err != nil {
		return err
	}
	if _, err := search.ParseNormalizer(c.Search.Normalization); err != nil {
		return err
	}
	if c.Search.MaxRedirectDepth <= 0 {
		return fmt.Errorf("%w: search.max_redirect_depth must be positive", ErrInvalidConfig)
	}
	if c.Search.MaxExplored < 0 || c.Search.Timeout < 0 || c.Search.ProgressEvery < 0 {
		return fmt.Errorf("%w: search budgets cannot be negative", ErrInvalidConfig)
	}
	switch c.Render.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: render.color %q", ErrInvalidConfig, c.Render.Color)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// SearchOptions translates the search section into engine options.
func (c Config) SearchOptions() ([]search.Option, error) {
	normalizer, err := search.ParseNormalizer(c.Search.Normalization)
	if err != nil {
		return nil, err
	}
	return []search.Option{
		search.WithMaxRedirectDepth(c.Search.MaxRedirectDepth),
		search.WithNormalizer(normalizer),
		search.WithMaxExplored(c.Search.MaxExplored),
		search.WithTimeout(c.Search.Timeout),
		search.WithProgressEvery(c.Search.ProgressEvery),
	}, nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, l.Level)
	}
	return level, nil
}
