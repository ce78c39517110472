package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dishmap/internal/adapters/observability"
	"dishmap/internal/domain"
)

// UploadInput is one photo submission.
type UploadInput struct {
	File         io.Reader
	Filename     string
	MimeType     string
	PlaceID      string
	Dish         string
	UploaderName string
}

type IngestionService struct {
	blobs    domain.BlobStore
	variants domain.VariantGenerator
	records  domain.RecordStore

	now   func() time.Time
	newID func() string
}

func NewIngestionService(b domain.BlobStore, v domain.VariantGenerator, r domain.RecordStore) *IngestionService {
	return &IngestionService{
		blobs:    b,
		variants: v,
		records:  r,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock replaces the clock and id source; used by tests and the bulk importer.
func (s *IngestionService) WithClock(now func() time.Time, newID func() string) *IngestionService {
	if now != nil {
		s.now = now
	}
	if newID != nil {
		s.newID = newID
	}
	return s
}

// Ingest validates the upload, stores the original, derives variants and
// appends the record. Variant failures are tolerated; a failed append is not.
func (s *IngestionService) Ingest(ctx context.Context, in UploadInput) (domain.UploadRecord, error) {
	rec, err := s.ingest(ctx, in)
	switch {
	case err == nil:
		observability.ObserveUpload("ok")
	case errors.Is(err, domain.ErrValidation):
		observability.ObserveUpload("rejected")
	default:
		observability.ObserveUpload("failed")
	}
	return rec, err
}

func (s *IngestionService) ingest(ctx context.Context, in UploadInput) (domain.UploadRecord, error) {
	if in.File == nil {
		return domain.UploadRecord{}, domain.ErrMissingFile
	}
	// 1) type
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(in.MimeType)), domain.ImageMIMEPrefix) {
		return domain.UploadRecord{}, domain.ErrInvalidFileType
	}

	// 2) size; one byte past the limit is enough to reject
	data, err := io.ReadAll(io.LimitReader(in.File, domain.MaxUploadBytes+1))
	if err != nil {
		return domain.UploadRecord{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > domain.MaxUploadBytes {
		return domain.UploadRecord{}, domain.ErrFileTooLarge
	}

	// 3) original
	id := s.newID()
	name := id + extensionOf(in.Filename)
	ref, err := s.blobs.Save(ctx, name, in.MimeType, bytes.NewReader(data))
	if err != nil {
		return domain.UploadRecord{}, fmt.Errorf("save original: %w", err)
	}

	// 4) place
	placeID := strings.TrimSpace(in.PlaceID)
	if placeID == "" {
		s.discard(ctx, id, name)
		return domain.UploadRecord{}, domain.ErrMissingPlaceID
	}

	rec := domain.UploadRecord{
		ID:           id,
		OriginalRef:  ref,
		PlaceID:      placeID,
		Dish:         strings.TrimSpace(in.Dish),
		UploaderName: strings.TrimSpace(in.UploaderName),
		CreatedAt:    s.now().UTC(),
	}

	// refs that were derived are kept even when the other variant failed
	v, err := s.variants.Derive(ctx, id, data)
	rec.ThumbRef, rec.PreviewRef = v.ThumbRef, v.PreviewRef
	if err != nil {
		stage := "unknown"
		var me *domain.MediaProcessingError
		if errors.As(err, &me) {
			stage = me.Stage
		}
		observability.ObserveMediaFailure(stage)
		log.Warn().Err(err).Str("record_id", id).Str("place_id", placeID).Str("stage", stage).
			Bool("thumb", v.ThumbRef != nil).Bool("preview", v.PreviewRef != nil).
			Msg("variant derivation failed")
	}

	if _, err := s.records.Append(ctx, rec); err != nil {
		log.Error().Err(err).Str("record_id", id).Str("place_id", placeID).Msg("append upload record")
		s.discard(ctx, id, name, id+domain.ThumbSuffix+".jpg", id+domain.PreviewSuffix+".jpg")
		return domain.UploadRecord{}, fmt.Errorf("append record: %w", err)
	}
	return rec, nil
}

// discard removes blobs written for an upload that will not be recorded.
func (s *IngestionService) discard(ctx context.Context, id string, names ...string) {
	for _, n := range names {
		if err := s.blobs.Delete(ctx, n); err != nil {
			log.Warn().Err(err).Str("record_id", id).Str("blob", n).Msg("discard blob")
		}
	}
}

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

func extensionOf(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !safeExt.MatchString(ext) {
		return domain.DefaultExtension
	}
	return ext
}
