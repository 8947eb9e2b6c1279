// Package config loads the cache configuration from the host environment.
// Values come from an optional YAML config file, overridden by environment
// variables prefixed with BUCKETCACHE_.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	gap "github.com/muesli/go-app-paths"
)

const appName = "bucketcache"

// Config holds every knob the cache core consumes from the host.
type Config struct {
	// DataPath is the root under which cache files live. Defaults to the
	// user data directory for the application.
	DataPath string `env:"DATA_PATH"`

	// DefaultTTL applies to Add calls that don't specify a TTL.
	DefaultTTL time.Duration `env:"DEFAULT_TTL"`

	// PropertyPrefix namespaces bucket slots in the host property store.
	PropertyPrefix string `env:"PROPERTY_PREFIX"`

	// KnownListTypes are the list-view identifiers recognized when routing
	// last-location invalidation.
	KnownListTypes []string `env:"LIST_TYPES" envSeparator:","`

	// Compression enables zstd compression of on-disk entries.
	Compression bool `env:"COMPRESSION"`

	// Debug raises the log level to debug.
	Debug bool `env:"DEBUG"`
}

// Default returns the built-in configuration. DataPath falls back to the
// user's data directory for the application.
func Default() Config {
	cfg := Config{
		DefaultTTL:     10 * time.Minute,
		PropertyPrefix: appName,
		KnownListTypes: []string{"queue", "topTen", "trendingNow", "newRelease", "continueWatching"},
		Compression:    true,
	}

	scope := gap.NewScope(gap.User, appName)
	if dir, err := scope.DataPath(""); err == nil {
		cfg.DataPath = dir
	}
	return cfg
}

// Load reads configuration from the default config file locations and the
// environment. A missing config file is not an error.
func Load() (Config, error) {
	v := viper.New()

	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return Config{}, fmt.Errorf("unable to locate configuration directories: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}
	if c := os.Getenv("BUCKETCACHE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(appName)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("could not parse configuration file: %w", err)
		}
	}

	cfg := Default()
	if v.IsSet("data_path") {
		cfg.DataPath = v.GetString("data_path")
	}
	if v.IsSet("default_ttl") {
		cfg.DefaultTTL = v.GetDuration("default_ttl")
	}
	if v.IsSet("property_prefix") {
		cfg.PropertyPrefix = v.GetString("property_prefix")
	}
	if v.IsSet("list_types") {
		cfg.KnownListTypes = v.GetStringSlice("list_types")
	}
	if v.IsSet("compression") {
		cfg.Compression = v.GetBool("compression")
	}
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}

	// Environment variables win over the config file.
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BUCKETCACHE_"}); err != nil {
		return Config{}, fmt.Errorf("error parsing config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the cache cannot work with.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data path must not be empty")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default TTL must be positive, got %v", c.DefaultTTL)
	}
	if c.PropertyPrefix == "" {
		return fmt.Errorf("property prefix must not be empty")
	}
	return nil
}
