// Package config loads pcdump settings using viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rawbytedev/recast/pkg/dump"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config maps to the `recast:` root key in YAML.
type Config struct {
	Log  LogConfig  `mapstructure:"log" yaml:"log"`
	Dump DumpConfig `mapstructure:"dump" yaml:"dump"`
	Gen  GenConfig  `mapstructure:"gen" yaml:"gen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug | info | warn | error
	Format string `mapstructure:"format" yaml:"format"` // text | json
}

// DumpConfig controls how dumps are written.
type DumpConfig struct {
	Compression string `mapstructure:"compression" yaml:"compression"` // none | zstd
	Level       string `mapstructure:"level" yaml:"level"`             // fastest | default | better | best
}

// GenConfig drives synthetic packet generation.
type GenConfig struct {
	Count int   `mapstructure:"count" yaml:"count"`
	Seed  int64 `mapstructure:"seed" yaml:"seed"`
}

type configRoot struct {
	Recast Config `mapstructure:"recast" yaml:"recast"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		Dump: DumpConfig{Compression: "zstd", Level: "default"},
		Gen:  GenConfig{Count: 1024, Seed: 1},
	}
}

// Load reads configuration from path, or only defaults and environment
// when path is empty. Env vars use the RECAST_ prefix (RECAST_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Key "recast.log.level" maps to env RECAST_LOG_LEVEL.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Recast

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("recast.log.level", d.Log.Level)
	v.SetDefault("recast.log.format", d.Log.Format)
	v.SetDefault("recast.dump.compression", d.Dump.Compression)
	v.SetDefault("recast.dump.level", d.Dump.Level)
	v.SetDefault("recast.gen.count", d.Gen.Count)
	v.SetDefault("recast.gen.seed", d.Gen.Seed)
}

// Validate checks every enumerated setting.
func (cfg *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Dump.Compression != "none" && cfg.Dump.Compression != "zstd" {
		return fmt.Errorf("invalid dump compression: %s (must be none/zstd)", cfg.Dump.Compression)
	}
	if _, err := dump.ParseLevel(cfg.Dump.Level); err != nil {
		return err
	}
	if cfg.Gen.Count < 0 {
		return fmt.Errorf("invalid gen count: %d", cfg.Gen.Count)
	}
	return nil
}

// DumpOptions converts the dump section into writer options.
func (cfg *Config) DumpOptions() (dump.Options, error) {
	level, err := dump.ParseLevel(cfg.Dump.Level)
	if err != nil {
		return dump.Options{}, err
	}
	return dump.Options{Compress: cfg.Dump.Compression == "zstd", Level: level}, nil
}

// WriteDefault writes the default configuration as YAML, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := yaml.Marshal(configRoot{Recast: Default()})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
