package blob

import (
	"context"
	"fmt"

	"dishmap/internal/domain"
	"dishmap/internal/shared"
)

// Open builds the configured media backend. localDir is empty unless the
// backend is the local directory, which the HTTP server then serves statically.
func Open(ctx context.Context, cfg shared.Config) (store domain.BlobStore, localDir string, err error) {
	switch cfg.MediaBackend {
	case "", "local":
		l, err := NewLocal(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		return l, l.Dir(), nil
	case "s3":
		s, err := NewS3FromEnv(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3PublicBase)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	default:
		return nil, "", fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}
