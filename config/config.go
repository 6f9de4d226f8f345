// Package config loads mediator settings from a YAML file, a .env file and SCG_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// EnvPrefix prefixes every environment override, e.g. SCG_EVENT_BUS_WORKERS.
const EnvPrefix = "SCG"

// Config is the main configuration struct combining all sub-configs
type Config struct {
	EventBus EventBusConfig `mapstructure:"event_bus"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

// Load reads configuration with priority:
// 1. Environment variables (highest priority)
// 2. Config file (scg-mediator.yaml, or path when set)
// 3. Defaults (lowest priority)
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scg-mediator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/scg-mediator")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", errors.Join(berr.ErrInvalidConfig, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", errors.Join(berr.ErrInvalidConfig, err))
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(berr.ErrInvalidConfig, err))
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error (for use in main.go)
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	return cfg
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{EventBus: EventBusConfig{Enabled: true}}
	SetDefaults(cfg)

	return cfg
}
