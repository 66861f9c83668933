package core

import (
	"fmt"

	"acsync/internal/domain"
)

// InstalledRecord remembers which checksums have been installed.
// MarkInstalled is idempotent.
type InstalledRecord interface {
	IsInstalled(checksum string) (bool, error)
	MarkInstalled(checksum string) error
}

// BuildTaskList returns the selected mods that still need installing, in selection
// order. Mods already in the record and repeated checksums are left out.
func BuildTaskList(selected []domain.ModDescriptor, record InstalledRecord) ([]domain.ModDescriptor, error) {
	seen := make(map[string]bool, len(selected))
	tasks := make([]domain.ModDescriptor, 0, len(selected))

	for _, mod := range selected {
		if seen[mod.Checksum] {
			continue
		}
		seen[mod.Checksum] = true

		installed, err := record.IsInstalled(mod.Checksum)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", mod.Filename, err)
		}
		if installed {
			continue
		}
		tasks = append(tasks, mod)
	}

	return tasks, nil
}

// RecordResults marks every successful checksum of a finished run as installed
func RecordResults(status *Status, record InstalledRecord) error {
	for _, checksum := range status.Successful() {
		if err := record.MarkInstalled(checksum); err != nil {
			return fmt.Errorf("recording %s: %w", checksum, err)
		}
	}
	return nil
}
