// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read before the environment; real environment variables win.
const DefaultEnvFile = ".env"

// NewConfig loads configuration from an optional config file, the env file and
// the environment, with typed defaults and validation. configFile may be empty.
func NewConfig(configFile string) (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(DefaultEnvFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "warn")

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.graphql_url", "")

	v.SetDefault("account", "")
	v.SetDefault("profile.path", "profile.yaml")

	v.SetDefault("report.format", "table")
	v.SetDefault("report.output", "")

	v.SetDefault("pacing.page_delay", 200*time.Millisecond)
	v.SetDefault("pacing.batch_delay", 500*time.Millisecond)
	v.SetDefault("pacing.batch_size", 10)
	v.SetDefault("pacing.min_remaining", 10)
	v.SetDefault("pacing.max_wait", time.Minute)

	v.SetDefault("enrich.workers", 1)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 10*time.Minute)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.query_timeout", 30*time.Second)
	v.SetDefault("postgres.max_conns", 4)
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"github.token",
		"github.base_url",
		"github.graphql_url",
		"account",
		"profile.path",
		"report.format",
		"report.output",
		"pacing.page_delay",
		"pacing.batch_delay",
		"pacing.batch_size",
		"pacing.min_remaining",
		"pacing.max_wait",
		"enrich.workers",
		"server.host",
		"server.port",
		"server.request_timeout",
		"postgres.dsn",
		"postgres.query_timeout",
		"postgres.max_conns",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
