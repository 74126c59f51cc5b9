// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/repo-stats/internal/config"
	"github.com/naka-gawa/repo-stats/internal/logger"
	"github.com/naka-gawa/repo-stats/internal/profile"
)

var rootCmd = &cobra.Command{
	Use:   "repo-stats",
	Short: "A CLI tool to report statistics for an account's public GitHub repositories.",
	Long: `repo-stats enumerates every public repository of a GitHub account, estimates
its open issues and open pull requests, and writes one report row per repository
as a table, CSV, JSON or into PostgreSQL.

The target account is read from --account or from the profile file created by
"repo-stats init".`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Cobra prints the returned error as a single "Error: ..." line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json or toml)")
}

// loadRuntime reads configuration and builds the logger shared by every command.
func loadRuntime(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func profileStore(cfg *config.Config) *profile.Store {
	return profile.NewStore(cfg.Profile.Path)
}
