// Package media derives the resized JPEG variants of an uploaded photo.
package media

import (
	"bytes"
	"context"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"

	"dishmap/internal/domain"
)

// Spec describes one derived variant.
type Spec struct {
	Suffix   string
	MaxWidth int
	Quality  int
}

var (
	Thumb   = Spec{Suffix: domain.ThumbSuffix, MaxWidth: 400, Quality: 80}
	Preview = Spec{Suffix: domain.PreviewSuffix, MaxWidth: 160, Quality: 75}
)

// Generator writes variants through a BlobStore. Concurrent derivations are
// capped by a weighted semaphore since decoding and resampling are CPU bound.
type Generator struct {
	blobs domain.BlobStore
	sem   *semaphore.Weighted
}

var _ domain.VariantGenerator = (*Generator)(nil)

func NewGenerator(blobs domain.BlobStore, workers int) *Generator {
	if workers <= 0 {
		workers = 1
	}
	return &Generator{blobs: blobs, sem: semaphore.NewWeighted(int64(workers))}
}

// Derive decodes original (honouring EXIF orientation) and stores the thumb
// and preview variants as <id>_thumb.jpg and <id>_preview.jpg. The variants
// are independent: when one fails the other is still attempted, and the refs
// that were stored come back alongside the first error.
func (g *Generator) Derive(ctx context.Context, id string, original []byte) (domain.Variants, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return domain.Variants{}, &domain.MediaProcessingError{Stage: "schedule", Err: err}
	}
	defer g.sem.Release(1)

	src, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Variants{}, &domain.MediaProcessingError{Stage: "decode", Err: err}
	}

	var (
		out      domain.Variants
		firstErr error
	)
	for _, spec := range []Spec{Thumb, Preview} {
		ref, err := g.derive(ctx, id, src, spec)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if spec == Thumb {
			out.ThumbRef = &ref
		} else {
			out.PreviewRef = &ref
		}
	}
	return out, firstErr
}

func (g *Generator) derive(ctx context.Context, id string, src image.Image, spec Spec) (string, error) {
	buf, err := Encode(src, spec)
	if err != nil {
		return "", &domain.MediaProcessingError{Stage: "encode", Err: err}
	}
	ref, err := g.blobs.Save(ctx, id+spec.Suffix+".jpg", "image/jpeg", buf)
	if err != nil {
		return "", &domain.MediaProcessingError{Stage: "store", Err: err}
	}
	return ref, nil
}

// Encode resizes src to at most spec.MaxWidth (never enlarging) and encodes it as JPEG.
func Encode(src image.Image, spec Spec) (*bytes.Buffer, error) {
	img := src
	if src.Bounds().Dx() > spec.MaxWidth {
		img = imaging.Resize(src, spec.MaxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(spec.Quality)); err != nil {
		return nil, err
	}
	return &buf, nil
}
