package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config is a helper package wrapping viper: an optional .env file plus
 * environment variables, with documented defaults for the delivery engine.
 */

type Config struct {
	Port     string `mapstructure:"PORT"`
	OpsToken string `mapstructure:"OPS_TOKEN"`

	// Storage selects the repository driver: "postgres" or "memory".
	Storage     string `mapstructure:"STORAGE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// EventTypesFile optionally extends the built-in event-type catalog.
	EventTypesFile string `mapstructure:"EVENT_TYPES_FILE"`

	// Delivery tuning. Documented defaults: 10s timeout, base 30s,
	// cap 1h, 5 attempts, 4 workers.
	DeliveryTimeoutSeconds int `mapstructure:"DELIVERY_TIMEOUT_SECONDS"`
	RetryBaseSeconds       int `mapstructure:"RETRY_BASE_SECONDS"`
	RetryCapSeconds        int `mapstructure:"RETRY_CAP_SECONDS"`
	MaxAttempts            int `mapstructure:"MAX_ATTEMPTS"`
	Workers                int `mapstructure:"WORKERS"`
	ResponseExcerptBytes   int `mapstructure:"RESPONSE_EXCERPT_BYTES"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("STORAGE", "postgres")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("DELIVERY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("RETRY_BASE_SECONDS", 30)
	viper.SetDefault("RETRY_CAP_SECONDS", 3600)
	viper.SetDefault("MAX_ATTEMPTS", 5)
	viper.SetDefault("WORKERS", 4)
	viper.SetDefault("RESPONSE_EXCERPT_BYTES", 1024)

	// The .env file is optional; environment variables alone are enough.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// DeliveryTimeout returns the outbound HTTP timeout
func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSeconds) * time.Second
}

// RetryBase returns the backoff base delay
func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseSeconds) * time.Second
}

// RetryCap returns the backoff delay cap
func (c *Config) RetryCap() time.Duration {
	return time.Duration(c.RetryCapSeconds) * time.Second
}
