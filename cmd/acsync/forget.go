package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <checksum>...",
	Short: "Drop mods from the installed record so they can be installed again",
	Long: `Drop mods from the installed record. Files already placed in the game
directory are left alone; the next install downloads the mod again.

Examples:
  acsync forget ddf7cb7a8dd889f3de6b649624a02725`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForget,
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	service, err := initService(true)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	for _, checksum := range args {
		if err := service.Forget(checksum); err != nil {
			return fmt.Errorf("forgetting %s: %w", checksum, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s.\n", checksum)
	}
	return nil
}
