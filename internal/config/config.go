// Package config loads and validates filterd's configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/nullset-labs/filterd/internal/filter"
	"github.com/nullset-labs/filterd/pkg/logger"
)

// Config is the top-level configuration for the filterd daemon.
type Config struct {
	// DataDir is the directory Discovery scans at startup and the
	// directory under which filter payloads persist their on-disk state.
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// Filter is the default per-filter configuration handed to create
	// when the caller supplies no custom_config.
	Filter filter.Config `mapstructure:"filter" validate:"required"`

	Vacuum VacuumConfig `mapstructure:"vacuum"`
	Admin  AdminConfig  `mapstructure:"admin"`
	Log    logger.Config `mapstructure:"log"`
}

// VacuumConfig governs the background reclaimer's cadence (§4.4).
type VacuumConfig struct {
	Interval      time.Duration `mapstructure:"interval" validate:"required"`
	WarnThreshold uint64        `mapstructure:"warn_threshold"`
}

// AdminConfig governs the optional operator HTTP surface (SPEC_FULL §10.6).
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DefaultWarnThreshold is the WARN_THRESHOLD named in §4.4 step 3: the
// manager warns when the head version has outrun the oldest checkpoint by
// more than this many versions.
const DefaultWarnThreshold = 32

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "/var/lib/filterd")

	v.SetDefault("filter.capacity", filter.DefaultCapacity)
	v.SetDefault("filter.false_positive_rate", filter.DefaultFalsePositiveRate)
	v.SetDefault("filter.in_memory_only", false)

	v.SetDefault("vacuum.interval", "1s")
	v.SetDefault("vacuum.warn_threshold", DefaultWarnThreshold)

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.addr", "127.0.0.1:8625")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

// Load reads configuration from an optional YAML file at configPath,
// overlaid with FILTERD_-prefixed environment variables, and validates the
// result. An empty configPath skips file loading and uses defaults + env.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("filterd")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// Validate runs struct-tag validation plus the cross-field checks tags
// cannot express (the filter default's own invariants).
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("default filter config: %w", err)
	}
	if c.Vacuum.Interval <= 0 {
		return fmt.Errorf("vacuum.interval must be positive")
	}
	return nil
}
