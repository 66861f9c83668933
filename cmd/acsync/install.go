package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"acsync/internal/core"

	"github.com/spf13/cobra"
)

// pollInterval is how often a running install is sampled
const pollInterval = 100 * time.Millisecond

var installAll bool

var installCmd = &cobra.Command{
	Use:   "install [checksum|filename...]",
	Short: "Download and install mods into the game directory",
	Long: `Download mods from the server and install them into the game directory
set with 'acsync path'. Mods are named by checksum or filename; --all picks
every mod on the server. Mods that are already installed are skipped.

A mod that fails does not stop the others. Ctrl+C stops after the mod in
progress.

Examples:
  acsync install --all
  acsync install ks_car.zip
  acsync install ddf7cb7a8dd889f3de6b649624a02725`,
	RunE: runInstall,
}

// installJSON is the result of 'install --json'
type installJSON struct {
	Successful []string `json:"successful"`
	Errors     []string `json:"errors"`
	Attempted  int      `json:"attempted"`
	Total      int      `json:"total"`
}

func init() {
	installCmd.Flags().BoolVarP(&installAll, "all", "a", false, "install every mod on the server")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	service, err := initService(true)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	root, err := service.InstallPath()
	if err != nil {
		return fmt.Errorf("%w (set it with 'acsync path <dir>')", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := connect(ctx, service); err != nil {
		return err
	}

	entries, err := service.Catalog(ctx)
	if err != nil {
		return err
	}

	selected, err := selectMods(entries, args, installAll)
	if err != nil {
		return err
	}

	pipeline, err := service.NewInstall(selected)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if pipeline.Status().Snapshot().Total == 0 {
		if jsonOutput {
			return writeInstallJSON(out, core.Snapshot{})
		}
		fmt.Fprintln(out, colorYellow("Nothing to install: every selected mod is already installed."))
		return nil
	}

	pipeline.Start(ctx, root)
	snap := watch(pipeline, progressWriter(out))

	if err := service.RecordResults(pipeline.Status()); err != nil {
		return fmt.Errorf("saving installed mods: %w", err)
	}

	if jsonOutput {
		if err := writeInstallJSON(out, snap); err != nil {
			return err
		}
	} else {
		printSummary(out, snap)
	}

	if ctx.Err() != nil {
		return ErrCancelled
	}
	if len(snap.Errors) > 0 {
		return fmt.Errorf("%d error(s) during installation", len(snap.Errors))
	}
	return nil
}

// watch samples the pipeline until it finishes, handing each new status line to
// report, and returns the final snapshot
func watch(pipeline *core.Pipeline, report func(core.Snapshot)) core.Snapshot {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-pipeline.Done():
			return pipeline.Status().Snapshot()
		case <-ticker.C:
			snap := pipeline.Status().Snapshot()
			if snap.Text != last {
				last = snap.Text
				report(snap)
			}
		}
	}
}

// progressWriter prints status lines, or nothing in JSON mode
func progressWriter(out io.Writer) func(core.Snapshot) {
	if jsonOutput {
		return func(core.Snapshot) {}
	}
	return func(snap core.Snapshot) {
		if snap.Text == "" || snap.Finished {
			return
		}
		fmt.Fprintf(out, "[%3.0f%%] %s\n", snap.Fraction()*100, snap.Text)
	}
}

func printSummary(out io.Writer, snap core.Snapshot) {
	lines := strings.Split(strings.TrimRight(core.Summary(snap), "\n"), "\n")
	fmt.Fprintln(out)
	fmt.Fprintln(out, colorGreen(lines[0]))
	for _, line := range lines[1:] {
		fmt.Fprintln(out, colorRed(line))
	}
}

func writeInstallJSON(out io.Writer, snap core.Snapshot) error {
	result := installJSON{
		Successful: snap.Successful,
		Errors:     snap.Errors,
		Attempted:  snap.Attempted,
		Total:      snap.Total,
	}
	if result.Successful == nil {
		result.Successful = []string{}
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
