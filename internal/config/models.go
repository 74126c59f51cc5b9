package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Account overrides the profile's account when set (env ACCOUNT).
	Account  string         `mapstructure:"account"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Report   ReportConfig   `mapstructure:"report"`
	Pacing   PacingConfig   `mapstructure:"pacing"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate ensures settings are usable. The account is validated by the pipeline,
// since it may come from the profile instead.
func (c Config) Validate() error {
	switch c.Report.Format {
	case "table", "csv", "json":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres report format")
		}
	default:
		return fmt.Errorf("report.format %q is not one of table, csv, json, postgres", c.Report.Format)
	}
	if c.Enrich.Workers < 1 {
		return errors.New("enrich.workers must be at least 1")
	}
	if c.Pacing.BatchSize < 0 || c.Pacing.PageDelay < 0 || c.Pacing.BatchDelay < 0 {
		return errors.New("pacing values must not be negative")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required")
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GitHubConfig contains API access settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	BaseURL    string `mapstructure:"base_url"`
	GraphQLURL string `mapstructure:"graphql_url"`
}

// ProfileConfig locates the profile file.
type ProfileConfig struct {
	Path string `mapstructure:"path"`
}

// ReportConfig selects the report sink.
type ReportConfig struct {
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// PacingConfig contains request pacing settings.
type PacingConfig struct {
	PageDelay    time.Duration `mapstructure:"page_delay"`
	BatchDelay   time.Duration `mapstructure:"batch_delay"`
	BatchSize    int           `mapstructure:"batch_size"`
	MinRemaining int           `mapstructure:"min_remaining"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
}

// EnrichConfig contains enrichment settings.
type EnrichConfig struct {
	Workers int `mapstructure:"workers"`
}

// ServerConfig contains HTTP trigger surface options.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PostgresConfig describes the report database.
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxConns     int32         `mapstructure:"max_conns"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
