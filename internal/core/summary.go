package core

import (
	"fmt"
	"strings"
)

// Summary renders the end-of-run report shown to the user
func Summary(snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d mods installed successfully.", len(snap.Successful))
	if snap.Attempted < snap.Total && len(snap.Errors) > 0 {
		fmt.Fprintf(&b, " (%d of %d attempted)", snap.Attempted, snap.Total)
	}
	if len(snap.Errors) == 0 {
		return b.String()
	}
	b.WriteString("\nErrors:\n")
	for _, e := range snap.Errors {
		b.WriteString(e)
		b.WriteString("\n")
	}
	return b.String()
}
