package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listPending bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the mods on the server",
	Long: `List the mods offered by the mod server and whether each one is installed.
Sizes are in whole megabytes.

Examples:
  acsync list
  acsync list --pending
  acsync list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// listJSON is one row of 'list --json'
type listJSON struct {
	Checksum  string `json:"checksum_md5"`
	Filename  string `json:"filename"`
	Size      uint64 `json:"size_in_bytes"`
	Installed bool   `json:"installed"`
}

func init() {
	listCmd.Flags().BoolVar(&listPending, "pending", false, "only show mods that are not installed")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	service, err := initService(true)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := connect(cmd.Context(), service); err != nil {
		return err
	}

	entries, err := service.Catalog(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := make([]listJSON, 0, len(entries))
	for _, e := range entries {
		if listPending && e.Installed {
			continue
		}
		rows = append(rows, listJSON{Checksum: e.Checksum, Filename: e.Filename, Size: e.Size, Installed: e.Installed})
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No mods.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECKSUM\tFILENAME\tSIZE\tINSTALLED")
	fmt.Fprintln(w, "--------\t--------\t----\t---------")
	for _, r := range rows {
		installed := "no"
		if r.Installed {
			installed = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%dM\t%s\n", r.Checksum, truncate(r.Filename, 50), r.Size/1024/1024, installed)
	}
	w.Flush()

	if verbosity > 0 {
		fmt.Fprintf(out, "\nTotal: %d mod(s)\n", len(rows))
	}
	return nil
}
