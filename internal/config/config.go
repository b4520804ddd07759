package config

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed example.yaml
var exampleConfig embed.FS

// Config represents the complete crossfeed configuration
type Config struct {
	Server  Server  `yaml:"server"`
	Feed    Feed    `yaml:"feed"`
	Gesture Gesture `yaml:"gesture"`
	Scroll  Scroll  `yaml:"scroll"`
	Cache   Cache   `yaml:"cache"`
	Logging Logging `yaml:"logging"`
}

// Server contains connection settings for the wall API
type Server struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"-"` // Loaded from CROSSFEED_TOKEN, never from file
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration
func (s *Server) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Feed contains the feed filter context and paging settings.
// Changing any filter field invalidates the accumulated feed entirely.
type Feed struct {
	PageSize   int    `yaml:"page_size"`
	School     string `yaml:"school"`      // School slug; empty = cross-school feed
	AllSchools bool   `yaml:"all_schools"` // Show posts from every school
	CrossOnly  bool   `yaml:"cross_only"`  // Only posts addressed to the cross-school wall
	Keyword    string `yaml:"keyword"`
	StartDate  string `yaml:"start_date"` // YYYY-MM-DD, inclusive
	EndDate    string `yaml:"end_date"`   // YYYY-MM-DD, inclusive
}

// Gesture contains pull-to-refresh tuning
type Gesture struct {
	CommitThreshold float64 `yaml:"commit_threshold"` // Damped distance that commits a refresh
	DeadZone        float64 `yaml:"dead_zone"`        // Raw displacement ignored as jitter
}

// Scroll contains scroll trigger thresholds
type Scroll struct {
	BottomMargin int `yaml:"bottom_margin"` // Rows from content end that trigger load-more
	TopMargin    int `yaml:"top_margin"`    // Rows from top past which the top affordance shows
}

// Cache contains feed snapshot cache settings
type Cache struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"` // Empty = stderr; the TUI owns stdout
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: Server{
			BaseURL:        "",
			TimeoutSeconds: 15,
		},
		Feed: Feed{
			PageSize: 20,
		},
		Gesture: Gesture{
			CommitThreshold: 60,
			DeadZone:        8,
		},
		Scroll: Scroll{
			BottomMargin: 12,
			TopMargin:    20,
		},
		Cache: Cache{
			Path: "./crossfeed.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = defaults.Server.TimeoutSeconds
	}
	if cfg.Feed.PageSize == 0 {
		cfg.Feed.PageSize = defaults.Feed.PageSize
	}
	if cfg.Gesture.CommitThreshold == 0 {
		cfg.Gesture.CommitThreshold = defaults.Gesture.CommitThreshold
	}
	if cfg.Gesture.DeadZone == 0 {
		cfg.Gesture.DeadZone = defaults.Gesture.DeadZone
	}
	if cfg.Scroll.BottomMargin == 0 {
		cfg.Scroll.BottomMargin = defaults.Scroll.BottomMargin
	}
	if cfg.Scroll.TopMargin == 0 {
		cfg.Scroll.TopMargin = defaults.Scroll.TopMargin
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = defaults.Cache.Path
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	// The session token never lives in the config file
	if token := os.Getenv("CROSSFEED_TOKEN"); token != "" {
		cfg.Server.Token = token
	}

	if base := os.Getenv("CROSSFEED_BASE_URL"); base != "" {
		cfg.Server.BaseURL = base
	}

	return nil
}

// GetExampleConfig returns the embedded example configuration
func GetExampleConfig() ([]byte, error) {
	return exampleConfig.ReadFile("example.yaml")
}

// Validate checks a configuration for consistency
func Validate(cfg *Config) error {
	if cfg.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if !strings.HasPrefix(cfg.Server.BaseURL, "http://") && !strings.HasPrefix(cfg.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must start with http:// or https://")
	}

	if cfg.Feed.PageSize < 1 || cfg.Feed.PageSize > 100 {
		return fmt.Errorf("feed.page_size must be between 1 and 100")
	}

	// The three scope selectors are mutually exclusive on the wire
	if cfg.Feed.School != "" && (cfg.Feed.AllSchools || cfg.Feed.CrossOnly) {
		return fmt.Errorf("feed.school cannot be combined with all_schools or cross_only")
	}
	if cfg.Feed.AllSchools && cfg.Feed.CrossOnly {
		return fmt.Errorf("feed.all_schools and feed.cross_only are mutually exclusive")
	}

	for _, d := range []struct{ name, val string }{
		{"feed.start_date", cfg.Feed.StartDate},
		{"feed.end_date", cfg.Feed.EndDate},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.val); err != nil {
			return fmt.Errorf("%s must be YYYY-MM-DD: %q", d.name, d.val)
		}
	}

	if cfg.Gesture.CommitThreshold <= 0 {
		return fmt.Errorf("gesture.commit_threshold must be positive")
	}
	if cfg.Gesture.DeadZone < 0 {
		return fmt.Errorf("gesture.dead_zone cannot be negative")
	}
	if cfg.Gesture.DeadZone >= cfg.Gesture.CommitThreshold {
		return fmt.Errorf("gesture.dead_zone must be below gesture.commit_threshold")
	}

	if cfg.Scroll.BottomMargin < 1 {
		return fmt.Errorf("scroll.bottom_margin must be at least 1")
	}
	if cfg.Scroll.TopMargin < 1 {
		return fmt.Errorf("scroll.top_margin must be at least 1")
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", cfg.Logging.Format)
	}

	return nil
}
