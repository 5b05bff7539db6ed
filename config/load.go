package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads config/app.yaml plus an optional per-environment override
// (config/environments/<env>.yaml) and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v.AddConfigPath("config")
	v.SetConfigName("app")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read app.yaml: %w", err)
	}

	// Environment-specific override
	v.SetConfigName("environments/" + env)
	if err := v.MergeInConfig(); err != nil {
		// Fall back to app.yaml when no per-environment file exists.
		fmt.Printf("[Grail] Warning: No environment-specific config for %s, using defaults\n", env)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
