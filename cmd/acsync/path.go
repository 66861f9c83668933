package main

import (
	"fmt"

	"acsync/internal/steam"

	"github.com/spf13/cobra"
)

// steamRoots lists the Steam installations searched by --detect
var steamRoots = steam.DefaultRoots

var pathCmd = &cobra.Command{
	Use:   "path [dir]",
	Short: "Show or set the Assetto Corsa game directory",
	Long: `Show or set the game directory mods are installed into. The directory must
contain acs.exe.

With --detect the Steam libraries on this machine are searched for the game
(STEAM_ROOT, ~/.steam/steam, ~/.local/share/Steam and the Flatpak location).

Examples:
  acsync path
  acsync path --detect
  acsync path ~/.steam/steam/steamapps/common/assettocorsa`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPath,
}

var pathDetect bool

func init() {
	pathCmd.Flags().BoolVar(&pathDetect, "detect", false, "find the game in the Steam libraries")

	rootCmd.AddCommand(pathCmd)
}

func runPath(cmd *cobra.Command, args []string) error {
	service, err := initService(true)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	out := cmd.OutOrStdout()

	if pathDetect {
		if len(args) > 0 {
			return fmt.Errorf("--detect cannot be combined with a directory")
		}
		dir, err := steam.FindApp(steamRoots(), steam.AssettoCorsaAppID)
		if err != nil {
			return fmt.Errorf("detecting Assetto Corsa: %w", err)
		}
		args = []string{dir}
	}

	if len(args) == 0 {
		current := service.Config().InstallPath
		if current == "" {
			fmt.Fprintln(out, "No game directory set. Set one with 'acsync path <dir>'.")
			return nil
		}
		if _, err := service.InstallPath(); err != nil {
			fmt.Fprintf(out, "%s %s\n", current, colorRed("(invalid: "+err.Error()+")"))
			return nil
		}
		fmt.Fprintln(out, current)
		return nil
	}

	path, err := service.SetInstallPath(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Game directory set to %s\n", path)
	return nil
}
