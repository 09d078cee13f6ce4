package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/crossbrowse/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage browser profiles",
}

var profilePackCmd = &cobra.Command{
	Use:   "pack <profile-dir> <archive>",
	Short: "Pack a profile directory into a seed archive",
	Long: `Pack a configured profile directory into a .tar.gz archive.

The archive can be used as aggressiveShieldsSeed: empty brave-aggr profiles
are extracted from it before their first launch.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.Pack(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Packed %s into %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profilePackCmd)
	rootCmd.AddCommand(profileCmd)
}
