// Package file is the JSON-file Record Store: one JSON array holding every
// UploadRecord in insertion order.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"dishmap/internal/domain"
)

// lockRetry is the polling interval while another process holds the file lock.
const lockRetry = 10 * time.Millisecond

// Store is safe for concurrent use within a process and across processes
// sharing the same path: Append holds an OS lock on <path>.lock for the whole
// read-modify-write.
type Store struct {
	path string
	mu   sync.Mutex // a flock.Flock tracks one lock per handle, so goroutines still queue here
	lock *flock.Flock
}

var _ domain.RecordStore = (*Store)(nil)

// New prepares the parent directory of path. The file itself is created on the first append.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating records directory: %w", err)
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}, nil
}

// Append adds rec to the end of the collection. The file is replaced by an
// atomic rename, so readers only ever see complete collections.
func (s *Store) Append(ctx context.Context, rec domain.UploadRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("%w: lock %s: %v", domain.ErrStoreUnavailable, s.lock.Path(), err)
	}
	if !locked {
		return "", fmt.Errorf("%w: lock %s: not acquired", domain.ErrStoreUnavailable, s.lock.Path())
	}
	defer func() { _ = s.lock.Unlock() }()

	recs, err := s.load()
	if err != nil {
		// never overwrite a collection we could not parse
		return "", err
	}
	recs = append(recs, rec)

	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode records: %v", domain.ErrStoreUnavailable, err)
	}
	if err := writeAtomic(s.path, b); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

func (s *Store) All(_ context.Context) ([]domain.UploadRecord, error) {
	return s.load()
}

func (s *Store) FindByPlace(_ context.Context, placeID string) ([]domain.UploadRecord, error) {
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.UploadRecord, 0)
	for _, r := range recs {
		if r.PlaceID == placeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) load() ([]domain.UploadRecord, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.UploadRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreUnavailable, s.path, err)
	}
	recs := []domain.UploadRecord{}
	if len(b) == 0 {
		return recs, nil
	}
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrStoreUnavailable, s.path, err)
	}
	return recs, nil
}

func writeAtomic(path string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	// CreateTemp uses 0600; the collection keeps the usual data file mode
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
