package cmd

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "checks whether a newer release is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApplication(cmd)
		if err != nil {
			return err
		}

		release := app.manager.CheckForUpdate(cmd.Context())
		if release == nil {
			cmd.Println("You're already on the latest version.")
			return nil
		}

		cmd.Printf("Version %s is available.\n", release.Version)
		if release.Changelog != "" {
			cmd.Printf("\nChangelog:\n%s\n", release.Changelog)
		}
		return nil
	},
}
