// Package placement moves resolved mod content into the installation tree.
package placement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"acsync/internal/domain"
	"acsync/internal/logging"

	"github.com/rs/zerolog"
)

// Mover relocates src to dst. dst does not exist when Move is called.
type Mover interface {
	Move(src, dst string) error
	Method() domain.PlacementMethod
}

// NewMover creates a mover for the given method
func NewMover(method domain.PlacementMethod) Mover {
	switch method {
	case domain.PlaceCopy:
		return NewCopy()
	default:
		return NewRename()
	}
}

// Executor applies placement instructions against an installation root
type Executor struct {
	mover  Mover
	logger zerolog.Logger
}

// NewExecutor creates an executor. A nil mover renames.
func NewExecutor(mover Mover) *Executor {
	if mover == nil {
		mover = NewRename()
	}
	return &Executor{
		mover:  mover,
		logger: logging.L("placement"),
	}
}

// Apply moves instr.Source to root/instr.Target. An existing destination is
// removed first, so a directory is replaced wholesale rather than merged.
func (e *Executor) Apply(instr domain.PlacementInstruction, root string) error {
	dst, err := Destination(root, instr.Target)
	if err != nil {
		return domain.WithKind(domain.ErrPlacement, err)
	}

	if _, err := os.Lstat(instr.Source); err != nil {
		return domain.WithKind(domain.ErrPlacement, fmt.Errorf("source %s: %w", filepath.Base(instr.Source), err))
	}

	if err := os.RemoveAll(dst); err != nil {
		return domain.WithKind(domain.ErrPlacement, fmt.Errorf("removing existing %s: %w", instr.Target, err))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return domain.WithKind(domain.ErrPlacement, fmt.Errorf("creating parent of %s: %w", instr.Target, err))
	}

	if err := e.mover.Move(instr.Source, dst); err != nil {
		return domain.WithKind(domain.ErrPlacement, fmt.Errorf("placing %s: %w", instr.Target, err))
	}

	e.logger.Debug().
		Str("target", instr.Target).
		Str("method", e.mover.Method().String()).
		Msg("Placed")
	return nil
}

// ApplyAll applies instructions in order and stops at the first failure.
// Instructions already applied stay in place.
func (e *Executor) ApplyAll(instrs []domain.PlacementInstruction, root string) error {
	for _, instr := range instrs {
		if err := e.Apply(instr, root); err != nil {
			return err
		}
	}
	return nil
}

// Destination joins a slash-separated relative target to root, rejecting targets
// that would land outside it.
func Destination(root, target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("empty target path")
	}
	if strings.HasPrefix(target, "/") || filepath.IsAbs(target) || filepath.VolumeName(target) != "" {
		return "", fmt.Errorf("target %q is absolute", target)
	}

	cleaned := filepath.Clean(filepath.FromSlash(target))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("target %q escapes the installation root", target)
	}

	return filepath.Join(root, cleaned), nil
}
