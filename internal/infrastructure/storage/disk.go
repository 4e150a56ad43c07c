// Package storage keeps uploaded entry images on the local disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

const (
	// URLPrefix is where the router serves the upload directory.
	URLPrefix = "/uploads/"

	sniffLen        = 3072
	defaultMaxBytes = 10 << 20
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskStore implements ports.ImageStore on a directory.
type DiskStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

// Save sniffs the content type, rejects anything but images, and writes the
// file under a generated name. The original filename is ignored.
func (s *DiskStore) Save(_ context.Context, _ string, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", domain.Invalid("image", "is empty")
	}

	mime := mimetype.Detect(head)
	ext, ok := allowedTypes[mime.String()]
	if !ok {
		return "", domain.Invalid("image", fmt.Sprintf("must be a jpeg, png, gif or webp image, got %s", mime.String()))
	}

	name := fmt.Sprintf("%d-%s%s", s.now().Unix(), uuid.NewString()[:8], ext)
	full := filepath.Join(s.dir, name)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(full)
		return "", fmt.Errorf("storage: write file: %w", err)
	case closeErr != nil:
		_ = os.Remove(full)
		return "", fmt.Errorf("storage: close file: %w", closeErr)
	case written > s.maxBytes:
		_ = os.Remove(full)
		return "", domain.Invalid("image", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}

	return URLPrefix + name, nil
}

// Delete removes the file behind url. Missing files are not an error.
func (s *DiskStore) Delete(_ context.Context, url string) error {
	name := path.Base(strings.TrimPrefix(url, URLPrefix))
	if name == "" || name == "." || name == "/" || !strings.HasPrefix(url, URLPrefix) {
		return fmt.Errorf("storage: not an upload url: %q", url)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", name, err)
	}
	return nil
}
