package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"acsync/internal/domain"
	"acsync/internal/logging"

	"github.com/rs/zerolog"
)

// DefaultDownloadBase is the URL prefix a mod checksum is appended to.
const DefaultDownloadBase = "https://acsync.team8.pl/mod_management/download?hash="

// DownloadProgress represents the current state of a download
type DownloadProgress struct {
	TotalBytes int64   // Expected size in bytes (0 if unknown)
	Downloaded int64   // Bytes downloaded so far
	Percentage float64 // Completion percentage (0-100)
}

// ProgressFunc is called periodically during download with progress updates
type ProgressFunc func(DownloadProgress)

// DownloadResult contains the outcome of a download
type DownloadResult struct {
	Path     string // Final file path
	Size     uint64 // Bytes written
	Checksum string // MD5 of the written bytes, informational only
}

// Downloader fetches mod archives addressed by checksum
type Downloader struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewDownloader creates a Downloader. A nil httpClient means http.DefaultClient,
// an empty baseURL means DefaultDownloadBase.
func NewDownloader(httpClient *http.Client, baseURL string) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultDownloadBase
	}
	return &Downloader{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logging.L("downloader"),
	}
}

// URL returns the retrieval address of a checksum
func (d *Downloader) URL(checksum string) string {
	return d.baseURL + checksum
}

// Fetch downloads a mod into destDir and verifies its size.
func (d *Downloader) Fetch(ctx context.Context, mod domain.ModDescriptor, destDir string, progressFn ProgressFunc) (string, error) {
	result, err := d.Download(ctx, mod, destDir, progressFn)
	if err != nil {
		return "", err
	}
	if err := VerifySize(mod, result.Size); err != nil {
		return "", err
	}
	return result.Path, nil
}

// Download streams the archive of mod to destDir/<filename>.
// It does not check the size; see VerifySize.
func (d *Downloader) Download(ctx context.Context, mod domain.ModDescriptor, destDir string, progressFn ProgressFunc) (*DownloadResult, error) {
	name, err := archiveName(mod.Filename)
	if err != nil {
		return nil, err
	}
	destPath := filepath.Join(destDir, name)

	url := d.URL(mod.Checksum)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.WithKind(domain.ErrTransport, fmt.Errorf("creating request: %w", err))
	}

	d.logger.Debug().Str("url", url).Str("file", name).Msg("Requesting archive")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, domain.WithKind(domain.ErrTransport, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.WithKind(domain.ErrTransport, fmt.Errorf("HTTP error: %s", resp.Status))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	tempPath := destPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(tempPath) // no-op after the rename
	}()

	totalBytes := int64(mod.Size)
	if totalBytes == 0 && resp.ContentLength > 0 {
		totalBytes = resp.ContentLength
	}

	hasher := md5.New()
	reader := &progressReader{
		reader:     resp.Body,
		totalBytes: totalBytes,
		progressFn: progressFn,
	}

	written, err := io.Copy(file, io.TeeReader(reader, hasher))
	if err != nil {
		return nil, domain.WithKind(domain.ErrTransport, fmt.Errorf("reading body: %w", err))
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	result := &DownloadResult{
		Path:     destPath,
		Size:     uint64(written),
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}
	d.logger.Debug().
		Str("file", name).
		Uint64("bytes", result.Size).
		Str("md5", result.Checksum).
		Msg("Archive written")

	return result, nil
}

// VerifySize compares the number of bytes written with the catalog size.
// A truncated transfer that still returned 200 is caught here.
func VerifySize(mod domain.ModDescriptor, written uint64) error {
	if written != mod.Size {
		return &domain.SizeMismatchError{Expected: mod.Size, Actual: written}
	}
	return nil
}

// archiveName keeps only the final element of a catalog filename
// so a hostile catalog cannot write outside the scratch dir.
func archiveName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filepath.FromSlash(filename)))
	if name == "" || name == "." || name == string(os.PathSeparator) {
		return "", fmt.Errorf("invalid archive filename %q", filename)
	}
	return name, nil
}

// progressReader wraps an io.Reader to track download progress
type progressReader struct {
	reader     io.Reader
	totalBytes int64
	downloaded int64
	progressFn ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		if r.progressFn != nil {
			progress := DownloadProgress{
				TotalBytes: r.totalBytes,
				Downloaded: r.downloaded,
			}
			if r.totalBytes > 0 {
				progress.Percentage = float64(r.downloaded) / float64(r.totalBytes) * 100
			}
			r.progressFn(progress)
		}
	}
	return n, err
}
