package domain

import (
	"errors"
	"fmt"
)

var (
	ErrModNotFound        = errors.New("mod not found")
	ErrAuthRequired       = errors.New("authentication required")
	ErrAuthFailed         = errors.New("login failed (wrong password?)")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidInstallPath = errors.New("invalid installation path")

	// Per-mod failure kinds. The pipeline records them and moves on.
	ErrTransport          = errors.New("transport error")
	ErrSizeMismatch       = errors.New("size mismatch")
	ErrExtract            = errors.New("extract error")
	ErrResolve            = errors.New("resolve error")
	ErrUnrecognizedLayout = errors.New("unrecognized archive layout")
	ErrPlacement          = errors.New("placement error")

	// ErrScratchCreation is fatal to a whole run: no mod is attempted.
	ErrScratchCreation = errors.New("cannot create scratch directory")
)

// SizeMismatchError reports a download whose byte count differs from the catalog size.
type SizeMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch (expected: %d, actual: %d)", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrSizeMismatch) match.
func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// StageError attributes a failure to a mod and the pipeline stage it happened in.
type StageError struct {
	Mod   string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("mod %s: %s failed: %v", e.Mod, e.Stage.Action(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WithKind tags err with one of the failure kinds above without changing its message.
// errors.Is matches both the kind and anything err wraps.
func WithKind(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	return e.err.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}
