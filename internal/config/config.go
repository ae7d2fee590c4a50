// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds client configuration values loaded from file or environment variables.
type Config struct {
	APIBaseURL          string `mapstructure:"API_BASE_URL"`
	SocketURL           string `mapstructure:"SOCKET_URL"`
	HTTPTimeoutSeconds  int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	ReconnectDelayMS    int    `mapstructure:"RECONNECT_DELAY_MS"`
	ReconnectDelayMaxMS int    `mapstructure:"RECONNECT_DELAY_MAX_MS"`
	ReconnectAttempts   int    `mapstructure:"RECONNECT_ATTEMPTS"`
	DefaultUserID       uint   `mapstructure:"DEFAULT_USER_ID"`
	Env                 string `mapstructure:"APP_ENV"`
}

// LoadConfig loads client configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	// We intentionally ignore this error as the config file may not exist yet
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	// Defaults match the development deployment of the feed service
	viper.SetDefault("API_BASE_URL", "http://127.0.0.1:8000/api")
	viper.SetDefault("SOCKET_URL", "ws://127.0.0.1:8001/ws")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("RECONNECT_DELAY_MS", 1000)
	viper.SetDefault("RECONNECT_DELAY_MAX_MS", 5000)
	viper.SetDefault("RECONNECT_ATTEMPTS", 5)
	viper.SetDefault("DEFAULT_USER_ID", 1)
	viper.SetDefault("APP_ENV", "development")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.SocketURL == "" {
		return errors.New("SOCKET_URL is required")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.ReconnectDelayMS <= 0 {
		return errors.New("RECONNECT_DELAY_MS must be positive")
	}
	if c.ReconnectDelayMaxMS < c.ReconnectDelayMS {
		return errors.New("RECONNECT_DELAY_MAX_MS must be at least RECONNECT_DELAY_MS")
	}
	if c.ReconnectAttempts < 0 {
		return errors.New("RECONNECT_ATTEMPTS must not be negative")
	}
	return nil
}

// HTTPTimeout returns the REST call timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ReconnectDelay returns the initial reconnect backoff delay.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// ReconnectDelayMax returns the backoff cap.
func (c *Config) ReconnectDelayMax() time.Duration {
	return time.Duration(c.ReconnectDelayMaxMS) * time.Millisecond
}
