package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Mappings []MappingConfig `mapstructure:"mappings"`
	Space    SpaceConfig     `mapstructure:"space"`
	Run      RunConfig       `mapstructure:"run"`
	Lock     LockConfig      `mapstructure:"lock"`
	History  HistoryConfig   `mapstructure:"history"`
	Logging  LoggingConfig   `mapstructure:"logging"`
}

// MappingConfig pairs one source root with its destination root
type MappingConfig struct {
	Source string `mapstructure:"source"`
	Dest   string `mapstructure:"dest"`
}

// SpaceConfig contains the free-space watermarks
type SpaceConfig struct {
	LowFreePercent    int `mapstructure:"low_free_percent"`
	TargetFreePercent int `mapstructure:"target_free_percent"`
}

// RunConfig contains per-run move settings
type RunConfig struct {
	MaxMoves   int  `mapstructure:"max_moves"`
	MinAgeDays int  `mapstructure:"min_age_days"`
	MaxDepth   int  `mapstructure:"max_depth"` // 0 = unbounded
	DryRun     bool `mapstructure:"dry_run"`
}

// LockConfig contains single-instance lock settings
type LockConfig struct {
	Path         string `mapstructure:"path"`
	StaleTimeout string `mapstructure:"stale_timeout"`
	StalePolicy  string `mapstructure:"stale_policy"` // terminate or refuse
}

// HistoryConfig contains run-history database settings
type HistoryConfig struct {
	Path string `mapstructure:"path"` // empty disables history
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"` // optional log file, also the monitor target
}

// Load loads configuration from the specified file path
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	v.SetDefault("space.low_free_percent", 10)
	v.SetDefault("space.target_free_percent", 25)
	v.SetDefault("run.max_moves", 5)
	v.SetDefault("run.min_age_days", 30)
	v.SetDefault("run.max_depth", 0)
	v.SetDefault("run.dry_run", false)
	v.SetDefault("lock.path", "/var/run/shoveover.lock")
	v.SetDefault("lock.stale_timeout", "2h")
	v.SetDefault("lock.stale_policy", "terminate")
	v.SetDefault("history.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration. Source roots must exist and be
// readable directories; destination roots are created on demand at move
// time, so only their presence in the config is checked here.
func (c *Config) Validate() error {
	if len(c.Mappings) == 0 {
		return &domain.ConfigError{Field: "mappings", Err: domain.ErrNoMappings}
	}

	seen := make(map[string]bool, len(c.Mappings))
	for i, m := range c.Mappings {
		field := fmt.Sprintf("mappings[%d]", i)
		if m.Source == "" {
			return &domain.ConfigError{Field: field + ".source", Err: errors.New("source root is required")}
		}
		if m.Dest == "" {
			return &domain.ConfigError{Field: field + ".dest", Err: errors.New("destination root is required")}
		}
		if seen[m.Source] {
			return &domain.ConfigError{Field: field + ".source", Path: m.Source, Err: domain.ErrDuplicateSource}
		}
		seen[m.Source] = true

		if err := checkReadableDir(m.Source); err != nil {
			return &domain.ConfigError{Field: field + ".source", Path: m.Source, Err: err}
		}
	}

	if c.Space.LowFreePercent < 1 || c.Space.LowFreePercent > 100 {
		return &domain.ConfigError{Field: "space.low_free_percent", Err: errors.New("must be between 1 and 100")}
	}
	if c.Space.TargetFreePercent < c.Space.LowFreePercent || c.Space.TargetFreePercent > 100 {
		return &domain.ConfigError{Field: "space.target_free_percent", Err: errors.New("must be between low_free_percent and 100")}
	}

	if c.Run.MaxMoves < 1 {
		return &domain.ConfigError{Field: "run.max_moves", Err: errors.New("must be at least 1")}
	}
	if c.Run.MinAgeDays < 0 {
		return &domain.ConfigError{Field: "run.min_age_days", Err: errors.New("must not be negative")}
	}
	if c.Run.MaxDepth < 0 {
		return &domain.ConfigError{Field: "run.max_depth", Err: errors.New("must not be negative")}
	}

	if c.Lock.Path == "" {
		return &domain.ConfigError{Field: "lock.path", Err: errors.New("lock path is required")}
	}
	if _, err := time.ParseDuration(c.Lock.StaleTimeout); err != nil {
		return &domain.ConfigError{Field: "lock.stale_timeout", Err: err}
	}
	switch c.Lock.StalePolicy {
	case "terminate", "refuse":
		// Valid policies
	default:
		return &domain.ConfigError{Field: "lock.stale_policy", Err: fmt.Errorf("unknown policy %q", c.Lock.StalePolicy)}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("invalid level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return &domain.ConfigError{Field: "logging.format", Err: fmt.Errorf("invalid format %q", c.Logging.Format)}
	}

	return nil
}

// DomainMappings converts the configured mappings into domain values,
// preserving order.
func (c *Config) DomainMappings() []domain.Mapping {
	out := make([]domain.Mapping, 0, len(c.Mappings))
	for _, m := range c.Mappings {
		out = append(out, domain.Mapping{SourceRoot: m.Source, DestRoot: m.Dest})
	}
	return out
}

// GetStaleTimeout returns the lock stale timeout as time.Duration
func (c *LockConfig) GetStaleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.StaleTimeout)
	if d == 0 {
		return 2 * time.Hour
	}
	return d
}

// checkReadableDir verifies path is a directory whose entries can be
// listed.
func checkReadableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return err
	}
	return nil
}
