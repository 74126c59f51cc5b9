package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates or refreshes the profile file",
	Long: `Creates the profile file with a placeholder account and usage instructions.
Running it again keeps the configured account and only rewrites the instructions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store := profileStore(cfg)
		p, err := store.Init()
		if err != nil {
			return fmt.Errorf("failed to initialize profile: %w", err)
		}
		log.Debugw("profile initialized", "path", store.Path(), "account", p.Account)

		fmt.Fprintf(cmd.OutOrStdout(), "Profile written to %s (account: %s)\n", store.Path(), p.Account)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
