package app_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"dishmap/internal/domain"
)

// ---- fakes ----

type fakeGateway struct {
	cands   []domain.PlaceCandidate
	details map[string]domain.PlaceDetails

	searchErr  error
	detailsErr map[string]error
	photoErr   error

	mu          sync.Mutex
	lastQuery   string
	lastOpts    domain.TextSearchOptions
	lastFields  []string
	detailCalls atomic.Int32
}

func (g *fakeGateway) TextSearch(_ context.Context, q string, o domain.TextSearchOptions) ([]domain.PlaceCandidate, error) {
	g.lastQuery, g.lastOpts = q, o
	return g.cands, g.searchErr
}

func (g *fakeGateway) Details(ctx context.Context, id string, fields []string) (domain.PlaceDetails, error) {
	g.detailCalls.Add(1)
	g.mu.Lock()
	g.lastFields = fields
	g.mu.Unlock()
	if err := g.detailsErr[id]; err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.PlaceDetails{}, err
	}
	return g.details[id], nil
}

func (g *fakeGateway) PhotoRedirectURL(_ context.Context, ref string, w int) (string, error) {
	if g.photoErr != nil {
		return "", g.photoErr
	}
	return fmt.Sprintf("https://lh3.example.com/%s=w%d", ref, w), nil
}

type fakeStore struct {
	mu   sync.Mutex
	recs []domain.UploadRecord

	readErr   error
	appendErr error
}

func (s *fakeStore) Append(_ context.Context, r domain.UploadRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return "", s.appendErr
	}
	s.recs = append(s.recs, r)
	return r.ID, nil
}

func (s *fakeStore) All(context.Context) ([]domain.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return append([]domain.UploadRecord(nil), s.recs...), nil
}

func (s *fakeStore) FindByPlace(_ context.Context, placeID string) ([]domain.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []domain.UploadRecord
	for _, r := range s.recs {
		if r.PlaceID == placeID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memBlobs struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMemBlobs() *memBlobs { return &memBlobs{files: map[string][]byte{}} }

func (m *memBlobs) Save(_ context.Context, name, _ string, body io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = buf.Bytes()
	return "/uploads/" + name, nil
}

func (m *memBlobs) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *memBlobs) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for n := range m.files {
		out = append(out, n)
	}
	return out
}

// fakeVariants writes placeholder variants, or fails with err. With
// thumbOnly the thumb is still written before failing.
type fakeVariants struct {
	blobs     *memBlobs
	err       error
	thumbOnly bool
	calls     int
}

func (f *fakeVariants) Derive(ctx context.Context, id string, _ []byte) (domain.Variants, error) {
	f.calls++
	if f.err != nil && f.thumbOnly {
		thumb, _ := f.blobs.Save(ctx, id+"_thumb.jpg", "image/jpeg", bytes.NewReader([]byte("t")))
		return domain.Variants{ThumbRef: &thumb}, f.err
	}
	if f.err != nil {
		return domain.Variants{}, f.err
	}
	thumb, _ := f.blobs.Save(ctx, id+"_thumb.jpg", "image/jpeg", bytes.NewReader([]byte("t")))
	prev, _ := f.blobs.Save(ctx, id+"_preview.jpg", "image/jpeg", bytes.NewReader([]byte("p")))
	return domain.Variants{ThumbRef: &thumb, PreviewRef: &prev}, nil
}

func pstr(s string) *string { return &s }
