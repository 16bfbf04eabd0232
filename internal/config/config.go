// Package config loads sitelinks settings using Viper, from command-line
// flags, SITELINKS_ environment variables and an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sitelinks/internal/checker"
	"sitelinks/internal/report"
)

const EnvPrefix = "SITELINKS"

// Keys shared by flags, environment variables and the config file.
const (
	KeyBuildDir    = "build_dir"
	KeyContentRoot = "content_root"
	KeySourceExt   = "source_ext"
	KeyExternal    = "external"
	KeyWorkers     = "workers"
	KeyTimeout     = "timeout"
	KeyRetries     = "retries"
	KeyFormat      = "format"
	KeyLogLevel    = "log_level"
	KeyDebounce    = "debounce"
)

type Config struct {
	BuildDir    string        `mapstructure:"build_dir"`
	ContentRoot string        `mapstructure:"content_root"`
	SourceExt   string        `mapstructure:"source_ext"`
	External    bool          `mapstructure:"external"`
	Workers     int           `mapstructure:"workers"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	Format      string        `mapstructure:"format"`
	LogLevel    string        `mapstructure:"log_level"`
	Debounce    time.Duration `mapstructure:"debounce"`
}

// SetDefaults registers every key on v so environment variables are seen
// by Unmarshal even when no flag or file sets them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBuildDir, "./build")
	v.SetDefault(KeyContentRoot, checker.DefaultContentRoot)
	v.SetDefault(KeySourceExt, checker.DefaultSourceExt)
	v.SetDefault(KeyExternal, false)
	v.SetDefault(KeyWorkers, checker.DefaultWorkers)
	v.SetDefault(KeyTimeout, checker.DefaultTimeout)
	v.SetDefault(KeyRetries, checker.DefaultMaxRetries)
	v.SetDefault(KeyFormat, report.FormatTAP)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyDebounce, 300*time.Millisecond)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BuildDir) == "" {
		return fmt.Errorf("%s must not be empty", KeyBuildDir)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyWorkers, c.Workers)
	}
	if c.Retries < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyRetries, c.Retries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyTimeout, c.Timeout)
	}
	if c.SourceExt != "" && !strings.HasPrefix(c.SourceExt, ".") {
		return fmt.Errorf("%s must start with a dot, got %q", KeySourceExt, c.SourceExt)
	}
	if !slices.Contains(report.Formats, strings.ToLower(c.Format)) {
		return fmt.Errorf("%s must be one of %s, got %q", KeyFormat, strings.Join(report.Formats, ", "), c.Format)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, c.LogLevel, err)
	}
	return level, nil
}

// Options converts the config into checker options.
func (c *Config) Options() checker.Options {
	return checker.Options{
		BuildRoot:     c.BuildDir,
		ContentRoot:   c.ContentRoot,
		SourceExt:     c.SourceExt,
		CheckExternal: c.External,
		Workers:       c.Workers,
		Timeout:       c.Timeout,
		MaxRetries:    c.Retries,
	}
}
