package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"acsync/internal/core"
	"acsync/internal/domain"
)

// connect opens a session, pointing at 'acsync login' when the saved credentials are rejected
func connect(ctx context.Context, svc *core.Service) error {
	err := svc.Connect(ctx)
	if errors.Is(err, domain.ErrAuthFailed) {
		return fmt.Errorf("%w: log in again with 'acsync login'", err)
	}
	return err
}

// selectMods picks catalog entries by checksum or filename, in catalog order.
// With all set every entry is selected and args must be empty.
func selectMods(entries []core.CatalogEntry, args []string, all bool) ([]domain.ModDescriptor, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with mod names")
		}
		mods := make([]domain.ModDescriptor, 0, len(entries))
		for _, e := range entries {
			mods = append(mods, e.ModDescriptor)
		}
		return mods, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no mods given; name mods by checksum or filename, or use --all")
	}

	wanted := make(map[string]bool, len(args))
	for _, a := range args {
		wanted[strings.ToLower(a)] = false
	}

	var mods []domain.ModDescriptor
	for _, e := range entries {
		keys := []string{strings.ToLower(e.Checksum), strings.ToLower(e.Filename)}
		matched := false
		for _, k := range keys {
			if _, ok := wanted[k]; ok {
				wanted[k] = true
				matched = true
			}
		}
		if matched {
			mods = append(mods, e.ModDescriptor)
		}
	}

	var missing []string
	for _, a := range args {
		if !wanted[strings.ToLower(a)] {
			missing = append(missing, a)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrModNotFound, strings.Join(missing, ", "))
	}
	return mods, nil
}

// truncate shortens s to maxLen, marking the cut with "..."
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
