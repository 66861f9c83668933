package core

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"acsync/internal/domain"
)

// ListTree returns every file and directory below root, as slash-separated paths
// relative to root, in lexical order. root itself is not included.
func ListTree(root string) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, domain.Entry{
			Path:  filepath.ToSlash(relPath),
			IsDir: d.IsDir(),
		})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("listing extracted files: %w", err)
	}

	return entries, nil
}
