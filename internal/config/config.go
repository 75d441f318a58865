package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers selectable through STORE_DRIVER.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config is the process configuration, read from the environment and an optional file.
type Config struct {
	Env             string        `mapstructure:"app_env"          json:"app_env"`
	Port            string        `mapstructure:"app_port"         json:"app_port"`
	LogLevel        string        `mapstructure:"log_level"        json:"log_level"`
	APIKey          string        `mapstructure:"api_key"          json:"-"`
	APIKeyHeader    string        `mapstructure:"api_key_header"   json:"api_key_header"`
	StoreDriver     string        `mapstructure:"store_driver"     json:"store_driver"`
	StoreSeed       bool          `mapstructure:"store_seed"       json:"store_seed"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"  json:"metrics_enabled"`
	RabbitMQURL     string        `mapstructure:"rabbitmq_url"     json:"-"`
	RabbitMQQueue   string        `mapstructure:"rabbitmq_queue"   json:"rabbitmq_queue"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// SetDefaults registers every key with its default so that AutomaticEnv and Unmarshal
// both see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "production")
	v.SetDefault("app_port", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_key", "")
	v.SetDefault("api_key_header", "x-api-key")
	v.SetDefault("store_driver", StoreMemory)
	v.SetDefault("store_seed", false)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("rabbitmq_queue", "product_events")
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

// Load reads the configuration into a Config. An empty file skips the config file.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API_KEY must be set")
	}
	if strings.TrimSpace(c.APIKeyHeader) == "" {
		return errors.New("API_KEY_HEADER must not be empty")
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
