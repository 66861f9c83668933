package main

import (
	"fmt"

	"acsync/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Pick and install mods interactively",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log lines on stderr would tear the screen
	service, err := initService(false)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := connect(cmd.Context(), service); err != nil {
		return err
	}

	return tui.Run(service)
}
