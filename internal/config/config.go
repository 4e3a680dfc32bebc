// Package config holds the settings of the blockstpl command and loads them
// from HCL or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/oarkflow/blockstpl/internal/logger"
	"go.uber.org/multierr"
)

// Config is the full set of engine and logging settings.
type Config struct {
	TemplateRoot string   `hcl:"template_root,optional" toml:"template-root"`
	CacheRoot    string   `hcl:"cache_root,optional" toml:"cache-root"`
	DevMode      bool     `hcl:"dev_mode,optional" toml:"dev-mode"`
	Strict       bool     `hcl:"strict,optional" toml:"strict"`
	FileMode     string   `hcl:"file_mode,optional" toml:"file-mode"`
	Interval     string   `hcl:"watch_interval,optional" toml:"watch-interval"`
	Extensions   []string `hcl:"extensions,optional" toml:"extensions"`

	Log *LogConfig `hcl:"log,block" toml:"log"`
}

type LogConfig struct {
	Level  string `hcl:"level,optional" toml:"level"`
	Format string `hcl:"format,optional" toml:"format"`
}

// Default returns a Config with defaults.
func Default() *Config {
	lc := logger.NewConfig()
	return &Config{
		TemplateRoot: "views",
		CacheRoot:    "runtime/views",
		FileMode:     "0755",
		Interval:     "1s",
		Extensions:   []string{".html", ".tpl", ".php"},
		Log: &LogConfig{
			Level:  lc.Level.String(),
			Format: lc.Format,
		},
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs error
	if c.TemplateRoot == "" {
		errs = multierr.Append(errs, errors.New("template root must be set"))
	}
	if c.CacheRoot == "" {
		errs = multierr.Append(errs, errors.New("cache root must be set"))
	}
	if _, err := c.Mode(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.WatchInterval(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.Logger(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Mode parses FileMode as an octal permission. An empty value means no
// chmod.
func (c *Config) Mode() (os.FileMode, error) {
	if c.FileMode == "" {
		return 0, nil
	}
	m, err := strconv.ParseUint(c.FileMode, 8, 32)
	if err != nil || m > 0o777 {
		return 0, fmt.Errorf("file mode %q is not an octal permission", c.FileMode)
	}
	return os.FileMode(m), nil
}

func (c *Config) WatchInterval() (time.Duration, error) {
	if c.Interval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("watch interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch interval %s must be positive", d)
	}
	return d, nil
}

// Logger converts the log block into a logger.Config.
func (c *Config) Logger() (logger.Config, error) {
	lc := logger.NewConfig()
	if c.Log == nil {
		return lc, nil
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	if c.Log.Level != "" {
		if err := lc.Level.Set(c.Log.Level); err != nil {
			return lc, fmt.Errorf("log level: %w", err)
		}
	}
	return lc, nil
}
