// Package avatars stores uploaded profile pictures on local disk and
// normalizes the URLs clients see.
package avatars

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Subdir is the directory under the uploads root that holds avatars.
const Subdir = "avatars"

// DefaultMaxBytes caps an avatar upload when no limit is configured.
const DefaultMaxBytes int64 = 2 << 20

var (
	ErrTooLarge        = errors.New("avatar is too large")
	ErrUnsupportedType = errors.New("avatar must be a PNG, JPEG, GIF or WebP image")
	ErrEmpty           = errors.New("avatar file is empty")
)

// extensions maps sniffed content types to stored file extensions.
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// NormalizeURL rewrites a stored avatar reference to the public
// /uploads/avatars/<file> form. Absolute http(s) URLs and data URIs pass
// through unchanged; empty input stays empty.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return raw
	}
	name := path.Base(strings.ReplaceAll(raw, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return "/uploads/" + Subdir + "/" + name
}

// NormalizePtr applies NormalizeURL to an optional URL.
func NormalizePtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	u := NormalizeURL(*raw)
	if u == "" {
		return nil
	}
	return &u
}

// Store writes avatars beneath root/avatars.
type Store struct {
	root     string
	maxBytes int64
}

// NewStore returns a Store rooted at the uploads directory. maxBytes <= 0
// uses DefaultMaxBytes.
func NewStore(root string, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{root: root, maxBytes: maxBytes}
}

// MaxBytes returns the per-upload size cap.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save reads an image from r, checks its type and size, and writes it under
// a random name. It returns the public URL of the stored file.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	ext, ok := extensions[sniff(data)]
	if !ok {
		return "", ErrUnsupportedType
	}

	dir := filepath.Join(s.root, Subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create avatar dir: %w", err)
	}
	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}
	return NormalizeURL(name), nil
}

// Remove deletes a previously saved avatar. URLs that do not point into
// the avatar directory are ignored, as are files that no longer exist.
func (s *Store) Remove(url string) error {
	prefix := "/uploads/" + Subdir + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := path.Base(url)
	err := os.Remove(filepath.Join(s.root, Subdir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sniff(data []byte) string {
	// http.DetectContentType does not know WebP.
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "image/webp"
	}
	return http.DetectContentType(data)
}
