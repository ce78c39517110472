package domain

import (
	"context"
	"io"
)

// RecordStore is the append-only store of UploadRecords.
// Implementations serialize writes and iterate strictly in insertion order.
type RecordStore interface {
	Append(ctx context.Context, rec UploadRecord) (string, error)
	All(ctx context.Context) ([]UploadRecord, error)
	FindByPlace(ctx context.Context, placeID string) ([]UploadRecord, error)
}

// BlobStore persists media files and hands back opaque references to them.
type BlobStore interface {
	Save(ctx context.Context, name, contentType string, body io.Reader) (ref string, err error)
	Delete(ctx context.Context, name string) error
}

// VariantGenerator derives the resized images of an original. On error the
// returned Variants still carries the refs that were stored.
type VariantGenerator interface {
	Derive(ctx context.Context, id string, original []byte) (Variants, error)
}

type TextSearchOptions struct {
	Region string
	Type   string
}

// PlacesGateway wraps the external places provider.
type PlacesGateway interface {
	TextSearch(ctx context.Context, query string, opts TextSearchOptions) ([]PlaceCandidate, error)
	Details(ctx context.Context, placeID string, fields []string) (PlaceDetails, error)
	PhotoRedirectURL(ctx context.Context, photoRef string, maxWidth int) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
