package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dishmap/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "uploads.json"))
	require.NoError(t, err)
	return s
}

func rec(id, place string) domain.UploadRecord {
	return domain.UploadRecord{
		ID:          id,
		OriginalRef: "/uploads/" + id + ".jpg",
		PlaceID:     place,
		CreatedAt:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s := newStore(t)
	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)
}

func TestStore_AppendFindByPlaceInOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, r := range []domain.UploadRecord{rec("a", "p1"), rec("b", "p2"), rec("c", "p1")} {
		id, err := s.Append(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, r.ID, id)
	}

	got, err := s.FindByPlace(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Nil(t, got[0].ThumbRef)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	none, err := s.FindByPlace(ctx, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_FileIsJSONArray(t *testing.T) {
	s := newStore(t)
	thumb := "/uploads/a_thumb.jpg"
	r := rec("a", "p1")
	r.ThumbRef = &thumb
	_, err := s.Append(context.Background(), r)
	require.NoError(t, err)

	b, err := os.ReadFile(s.path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "/uploads/a_thumb.jpg", raw[0]["thumb_ref"])
	assert.Nil(t, raw[0]["preview_ref"])
	assert.Equal(t, "", raw[0]["dish"])
}

func TestStore_ConcurrentAppendsLoseNothing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, rec(fmt.Sprintf("r%02d", i), "p1"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)

	seen := map[string]bool{}
	for _, r := range all {
		assert.False(t, seen[r.ID], "duplicate %s", r.ID)
		seen[r.ID] = true
	}
}

func TestStore_SharedPathAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploads.json")
	a, err := New(path)
	require.NoError(t, err)
	b, err := New(path)
	require.NoError(t, err)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, s := range []*Store{a, b} {
			wg.Add(1)
			go func(s *Store, id string) {
				defer wg.Done()
				_, err := s.Append(ctx, rec(id, "p1"))
				assert.NoError(t, err)
			}(s, fmt.Sprintf("%p-%02d", s, i))
		}
	}
	wg.Wait()

	all, err := a.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2*n)
}

func TestStore_AppendCanceled(t *testing.T) {
	s := newStore(t)
	// another handle holds the lock for the whole test
	other := flock.New(s.path + ".lock")
	require.NoError(t, other.Lock())
	defer other.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Append(ctx, rec("x", "p1"))
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_FileMode(t *testing.T) {
	s := newStore(t)
	_, err := s.Append(context.Background(), rec("a", "p1"))
	require.NoError(t, err)

	fi, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())
}

func TestStore_CorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("[{broken"), 0o644))
	ctx := context.Background()

	_, err := s.All(ctx)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	_, err = s.Append(ctx, rec("x", "p1"))
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	// the corrupt collection is left untouched for inspection
	b, _ := os.ReadFile(s.path)
	assert.Equal(t, "[{broken", string(b))
}

func ids(rs []domain.UploadRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
