// Package config handles pgwired's configuration loading: a config file and
// environment variables, merged through viper the way riftdata/rift's
// internal/config does. Command-line flags are applied by cmd/pgwired.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config is pgwired's full runtime configuration.
type Config struct {
	Addr       string `mapstructure:"addr"`
	BufferSize int    `mapstructure:"buffer_size"`
	Version    string `mapstructure:"version"`
	LogLevel   string `mapstructure:"log_level"`
}

// DefaultConfig returns the configuration pgwired runs with when no flag,
// env var or config file overrides a field.
func DefaultConfig() *Config {
	return &Config{
		Addr:       "127.0.0.1:5432",
		BufferSize: 1 << 24,
		Version:    "15.0",
		LogLevel:   "info",
	}
}

// Load merges a config file (if present) and PGWIRED_-prefixed environment
// variables into a Config, defaults filling anything left unset. It uses
// its own viper instance, so flag bindings made on the global viper are not
// consulted here.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("buffer_size", defaults.BufferSize)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("log_level", defaults.LogLevel)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pgwired")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pgwired")
	}

	v.SetEnvPrefix("pgwired")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}
