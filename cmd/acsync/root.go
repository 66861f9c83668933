package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"acsync/internal/core"
	"acsync/internal/logging"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user cancels an operation (e.g. Ctrl+C during install).
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

var (
	version = "0.3.0"

	// Global flags
	configDir  string
	dataDir    string
	serverURL  string
	verbosity  int
	jsonOutput bool
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "acsync",
	Short: "acsync - keep Assetto Corsa mods in sync with a mod server",
	Long: `acsync downloads mods from an acsync server and installs them into an
Assetto Corsa game directory. Archives (.zip, .rar, .7z) are unpacked and
their content is put where the game expects it.

Start with 'acsync login' and 'acsync path <game dir>', then run
'acsync install --all' or 'acsync tui'.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: $XDG_CONFIG_HOME/acsync)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: $XDG_DATA_HOME/acsync)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "mod server address (overrides config and ACSYNC_SERVER)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbose output (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (list, install)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

var (
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func colorize(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// colorGreen returns s in green when color is enabled, otherwise s.
func colorGreen(s string) string { return colorize(greenStyle, s) }

// colorRed returns s in red when color is enabled, otherwise s.
func colorRed(s string) string { return colorize(redStyle, s) }

// colorYellow returns s in yellow when color is enabled, otherwise s.
func colorYellow(s string) string { return colorize(yellowStyle, s) }

// Execute runs the root command. Exit codes: 0 = success, 1 = error, 2 = user cancelled.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
// Cancellation (ErrCancelled) exits with code 2 without printing JSON, since it is a user action, not an error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, ErrCancelled) {
			os.Exit(2)
		}
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// initService sets up logging and creates the core service.
// console selects whether log lines also go to stderr.
func initService(console bool) (*core.Service, error) {
	logging.Setup(verbosity, console)

	cfg := getServiceConfig()

	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	return core.NewService(cfg)
}

// getServiceConfig returns the service configuration with XDG defaults
func getServiceConfig() core.ServiceConfig {
	cfg := core.ServiceConfig{
		ConfigDir: configDir,
		DataDir:   dataDir,
		ServerURL: serverURL,
		Getenv:    os.Getenv,
	}

	if cfg.ConfigDir == "" {
		cfg.ConfigDir = filepath.Join(xdg.ConfigHome, "acsync")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, "acsync")
	}

	return cfg
}

// closeService closes svc, warning on failure
func closeService(svc *core.Service) {
	if err := svc.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing service: %v\n", err)
	}
}
