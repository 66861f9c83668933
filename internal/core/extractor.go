package core

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"acsync/internal/domain"
	"acsync/internal/logging"

	"github.com/nwaples/rardecode/v2"
	"github.com/rs/zerolog"
)

// Archive formats understood by the Extractor
const (
	FormatZip      = "zip"
	FormatRar      = "rar"
	Format7z       = "7z"
	formatUnknown  = ""
	unpackDirGlob  = "acsync-unpack-*"
	magicPeekBytes = 8
)

var (
	magicZip = []byte("PK\x03\x04")
	magicRar = []byte("Rar!\x1a\x07")
	magic7z  = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
)

// Extractor handles archive extraction for mod files
type Extractor struct {
	tempRoot string
	logger   zerolog.Logger
}

// NewExtractor creates a new Extractor. Scratch directories made by Unpack
// live under tempRoot, or the system temp dir when it is empty.
func NewExtractor(tempRoot string) *Extractor {
	return &Extractor{
		tempRoot: tempRoot,
		logger:   logging.L("extractor"),
	}
}

// Unpack extracts an archive into a fresh scratch directory and returns its path.
// The caller owns the directory and must remove it. On failure nothing is left behind.
func (e *Extractor) Unpack(archivePath string) (string, error) {
	dir, err := os.MkdirTemp(e.tempRoot, unpackDirGlob)
	if err != nil {
		return "", domain.WithKind(domain.ErrExtract, fmt.Errorf("creating unpack directory: %w", err))
	}

	if err := e.Extract(archivePath, dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// Extract extracts an archive to the destination directory.
// Supports .zip and .rar natively, .7z via the system 7z command.
func (e *Extractor) Extract(archivePath, destDir string) error {
	done := logging.LogOperationStart(e.logger, "extract "+filepath.Base(archivePath))
	defer done()

	format, err := e.Sniff(archivePath)
	if err != nil {
		return domain.WithKind(domain.ErrExtract, err)
	}
	if format == formatUnknown {
		return domain.WithKind(domain.ErrExtract, fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath)))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return domain.WithKind(domain.ErrExtract, fmt.Errorf("creating destination directory: %w", err))
	}

	switch format {
	case FormatZip:
		err = e.extractZip(archivePath, destDir)
	case FormatRar:
		err = e.extractRar(archivePath, destDir)
	case Format7z:
		err = e.extract7z(archivePath, destDir)
	}
	return domain.WithKind(domain.ErrExtract, err)
}

// CanExtract returns true if the extractor can handle the given filename
func (e *Extractor) CanExtract(filename string) bool {
	return e.DetectFormat(filename) != formatUnknown
}

// DetectFormat returns the archive format based on filename extension
func (e *Extractor) DetectFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return FormatZip
	case ".7z":
		return Format7z
	case ".rar":
		return FormatRar
	default:
		return formatUnknown
	}
}

// Sniff returns the format of the archive at path. The extension decides when it is
// known, otherwise the leading magic bytes do. Catalog filenames are not always honest.
func (e *Extractor) Sniff(path string) (string, error) {
	if format := e.DetectFormat(path); format != formatUnknown {
		return format, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return formatUnknown, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	head := make([]byte, magicPeekBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return formatUnknown, fmt.Errorf("reading archive header: %w", err)
	}
	return detectMagic(head[:n]), nil
}

func detectMagic(head []byte) string {
	switch {
	case bytes.HasPrefix(head, magicZip):
		return FormatZip
	case bytes.HasPrefix(head, magicRar):
		return FormatRar
	case bytes.HasPrefix(head, magic7z):
		return Format7z
	default:
		return formatUnknown
	}
}

// extractZip extracts a ZIP archive using Go's native archive/zip package
func (e *Extractor) extractZip(archivePath, destDir string) (err error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing zip: %w", cerr)
		}
	}()

	for _, f := range r.File {
		if err := e.extractZipFile(f, destDir); err != nil {
			return err
		}
	}

	return nil
}

// extractZipFile extracts a single file from a ZIP archive
func (e *Extractor) extractZipFile(f *zip.File, destDir string) error {
	destPath, err := sanitizePath(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0755)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening file %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	if err := writeEntry(destPath, f.Mode(), rc); err != nil {
		return err
	}
	e.restoreModTime(destPath, f.Modified)
	return nil
}

// restoreModTime applies the archived modification time to an extracted file.
// Times before the DOS epoch mean the archive did not record one.
func (e *Extractor) restoreModTime(path string, mtime time.Time) {
	if mtime.Year() < 1980 {
		return
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		e.logger.Debug().Err(err).Str("file", path).Msg("Cannot restore modification time")
	}
}

// extractRar extracts a RAR archive natively
func (e *Extractor) extractRar(archivePath, destDir string) (err error) {
	rc, err := rardecode.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening rar: %w", err)
	}
	defer func() {
		if cerr := rc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing rar: %w", cerr)
		}
	}()

	for {
		header, err := rc.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading rar header: %w", err)
		}

		name := strings.ReplaceAll(header.Name, `\`, "/")
		destPath, err := sanitizePath(destDir, name)
		if err != nil {
			return err
		}

		if header.IsDir {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", name, err)
			}
			continue
		}

		if err := writeEntry(destPath, 0644, rc); err != nil {
			return err
		}
		e.restoreModTime(destPath, header.ModificationTime)
	}
}

// writeEntry writes one archive member to destPath, creating parent directories
func writeEntry(destPath string, mode os.FileMode, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}

	// Owner must be able to write, or the executor cannot move/replace it later
	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0600)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", destPath, err)
	}
	defer func() {
		if cerr := outFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing file %s: %w", destPath, cerr)
		}
	}()

	if _, err = io.Copy(outFile, r); err != nil {
		return fmt.Errorf("writing file %s: %w", destPath, err)
	}

	return nil
}

// sanitizePath ensures the extracted file path is within the destination directory.
// Entries like "../../../etc/passwd" are rejected.
func sanitizePath(destDir, filePath string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Clean(filepath.FromSlash(filePath)))

	cleanDest := filepath.Clean(destDir)
	if destPath != cleanDest && !strings.HasPrefix(destPath, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal detected: %s", filePath)
	}

	return destPath, nil
}

// extract7zTimeout is the maximum time allowed for 7z extraction (corrupted archives or hangs).
const extract7zTimeout = 5 * time.Minute

// extract7z extracts archives using the system 7z command.
func (e *Extractor) extract7z(archivePath, destDir string) error {
	bin, err := find7z()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), extract7zTimeout)
	defer cancel()

	// -y: assume yes to all queries; -o: output directory (no space between -o and path)
	cmd := exec.CommandContext(ctx, bin, "x", "-y", "-o"+destDir, archivePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("7z extraction timed out after %v", extract7zTimeout)
		}
		return fmt.Errorf("7z extraction failed: %w\nOutput: %s", err, string(output))
	}

	return nil
}

func find7z() (string, error) {
	for _, name := range []string{"7z", "7zz", "7za"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("7z command not found: install p7zip-full (or 7-Zip) to extract .7z files")
}
