// Package blob stores uploaded originals and their variants.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"dishmap/internal/domain"
)

// PublicPrefix is where the HTTP server exposes the local media directory.
const PublicPrefix = "/uploads"

// Local keeps media files in a directory served under PublicPrefix.
type Local struct {
	dir string
}

var _ domain.BlobStore = (*Local)(nil)

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Dir() string { return l.dir }

func (l *Local) Save(_ context.Context, name, _ string, body io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	dst := filepath.Join(l.dir, name)
	f, err := os.CreateTemp(l.dir, ".tmp-"+name+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp media file: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close media file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish media file: %w", err)
	}
	return path.Join(PublicPrefix, name), nil
}

// Delete removes name; a file that is already gone is not an error.
func (l *Local) Delete(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid media name %q", name)
	}
	return nil
}
