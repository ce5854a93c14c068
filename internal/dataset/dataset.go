package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Downloader fetches a zipped sample set and unpacks it into a directory
type Downloader struct {
	client *http.Client
	logger *zap.Logger
}

func NewDownloader(logger *zap.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 10 * time.Minute},
		logger: logger,
	}
}

// Fetch downloads the archive at url and extracts it into dir, returning the extracted file paths
func (d *Downloader) Fetch(ctx context.Context, url, dir string) ([]string, error) {
	d.logger.Info("Downloading dataset", zap.String("url", url))

	archive, err := os.CreateTemp("", "asreval-dataset-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer os.Remove(archive.Name())
	defer archive.Close()

	size, err := d.download(ctx, url, archive)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Extracting dataset", zap.Int64("bytes", size), zap.String("dir", dir))
	files, err := Extract(archive, size, dir)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Dataset is ready", zap.Int("files", len(files)))
	return files, nil
}

func (d *Downloader) download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to download dataset: status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to save dataset: %w", err)
	}
	return n, nil
}

// Extract unpacks a zip archive into dir. Entries resolving outside dir are rejected.
func Extract(r io.ReaderAt, size int64, dir string) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}

	var files []string
	for _, f := range zr.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return files, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("failed to create %s: %w", target, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return files, err
		}
		files = append(files, target)
	}
	return files, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes %s", name, root)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return dst.Close()
}
