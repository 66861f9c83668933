package placement

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"acsync/internal/domain"
)

// CopyMover moves by copying the tree and removing the source afterwards
type CopyMover struct{}

// NewCopy creates a new copy mover
func NewCopy() *CopyMover {
	return &CopyMover{}
}

// Move copies src (file or directory) to dst, then removes src.
// If the copy fails, the partial destination is removed and src is kept.
func (m *CopyMover) Move(src, dst string) error {
	if err := copyTree(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("removing source: %w", err)
	}
	return nil
}

// Method returns the placement method
func (m *CopyMover) Method() domain.PlacementMethod {
	return domain.PlaceCopy
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relPath)

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", relPath, err)
		}

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()|0700); err != nil {
				return fmt.Errorf("creating directory %s: %w", relPath, err)
			}
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading link %s: %w", relPath, err)
			}
			if err := os.Symlink(link, target); err != nil {
				return fmt.Errorf("creating link %s: %w", relPath, err)
			}
		default:
			if err := copyFile(path, target, info.Mode()); err != nil {
				return err
			}
		}
		return nil
	})
}

func copyFile(src, dst string, mode os.FileMode) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer func() {
		if cerr := dstFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing destination: %w", cerr)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copying file: %w", err)
	}

	return nil
}
