package domain

import "time"

// Upload limits and naming used by the ingestion pipeline and the blob backends.
const (
	MaxUploadBytes   = int64(12 << 20) // 12 MiB
	ImageMIMEPrefix  = "image/"
	DefaultExtension = ".jpg"
	ThumbSuffix      = "_thumb"
	PreviewSuffix    = "_preview"
)

// UploadRecord is one user-contributed photo. It is written once and never mutated.
type UploadRecord struct {
	ID           string    `json:"id"`
	OriginalRef  string    `json:"original_ref"`
	ThumbRef     *string   `json:"thumb_ref"`
	PreviewRef   *string   `json:"preview_ref"`
	PlaceID      string    `json:"place_id"`
	Dish         string    `json:"dish"`
	UploaderName string    `json:"uploader_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Variants holds the storage references of the derived images; either may be nil.
type Variants struct {
	ThumbRef   *string
	PreviewRef *string
}
