// Package assets stores uploaded event banners and issues retrieval URLs.
package assets

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// MaxUploadSize is the ceiling for a single banner upload.
const MaxUploadSize = 10 << 20 // 10 MiB

// ErrNotImage is returned when the uploaded bytes are not an image.
var ErrNotImage = errors.New("upload is not a valid image file")

// ErrTooLarge is returned when an upload exceeds MaxUploadSize.
var ErrTooLarge = errors.New("image size should be less than 10MB")

// Store accepts binary objects and returns retrieval URLs.
type Store interface {
	Upload(name string, r io.Reader) (string, error)
}

// DiskStore keeps uploads on the local filesystem under a base directory
// and serves them from the public /uploads/ route.
type DiskStore struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewDiskStore constructs a DiskStore rooted at dir. URLs are issued
// relative to baseURL.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "events"), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/"), now: time.Now}, nil
}

// Upload validates the object as an image under the size ceiling, writes
// it under a timestamp-and-filename key, and returns its public URL.
func (s *DiskStore) Upload(name string, r io.Reader) (string, error) {
	// Read one byte past the limit so oversized uploads are detected
	// without buffering arbitrarily large bodies.
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", ErrNotImage
	}

	key := fmt.Sprintf("events/%d_%s", s.now().UnixMilli(), sanitizeFilename(name))
	dest := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return s.baseURL + "/uploads/" + escapeKey(key), nil
}

// Dir exposes the storage root for the static file server.
func (s *DiskStore) Dir() string {
	return s.dir
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
