package placement

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"acsync/internal/domain"
)

// RenameMover moves by renaming. Across filesystems it copies, then removes the source.
type RenameMover struct {
	fallback *CopyMover
}

// NewRename creates a new rename mover
func NewRename() *RenameMover {
	return &RenameMover{fallback: NewCopy()}
}

// Move renames src to dst
func (m *RenameMover) Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("renaming: %w", err)
	}
	return m.fallback.Move(src, dst)
}

// Method returns the placement method
func (m *RenameMover) Method() domain.PlacementMethod {
	return domain.PlaceMove
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
