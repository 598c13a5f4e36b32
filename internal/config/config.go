package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CLIConfig configures the operator CLI.
type CLIConfig struct {
	API    APIConfig `mapstructure:"api"`
	Server string    `mapstructure:"server"`
}

type APIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Key        string `mapstructure:"key"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// LoadCLI reads the CLI configuration from an optional file plus
// QUEUEWATCH_-prefixed environment variables.
func LoadCLI(configPath string) (*CLIConfig, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout_sec", 5)
	v.SetDefault("server", "Yurian")

	v.SetEnvPrefix("QUEUEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("api.key", "QUEUEWATCH_API_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if !ServerNamePattern.MatchString(cfg.Server) {
		return nil, fmt.Errorf("invalid server name %q", cfg.Server)
	}
	return &cfg, nil
}
