// Package sqlite is a Record Store on modernc.org/sqlite, a pure Go SQLite
// build that needs no CGO.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"dishmap/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS upload_records (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	original_ref  TEXT NOT NULL,
	thumb_ref     TEXT,
	preview_ref   TEXT,
	place_id      TEXT NOT NULL,
	dish          TEXT NOT NULL DEFAULT '',
	uploader_name TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_upload_records_place ON upload_records(place_id, seq);
`

const selectColumns = `SELECT id, original_ref, thumb_ref, preview_ref, place_id, dish, uploader_name, created_at FROM upload_records`

type Store struct {
	db *sql.DB
	mu sync.Mutex // single writer
}

var _ domain.RecordStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	// WAL lets readers proceed while a write is in flight
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Append(ctx context.Context, rec domain.UploadRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO upload_records (id, original_ref, thumb_ref, preview_ref, place_id, dish, uploader_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OriginalRef, nullable(rec.ThumbRef), nullable(rec.PreviewRef),
		rec.PlaceID, rec.Dish, rec.UploaderName, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert record: %v", domain.ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

func (s *Store) All(ctx context.Context) ([]domain.UploadRecord, error) {
	return s.query(ctx, selectColumns+` ORDER BY seq`)
}

func (s *Store) FindByPlace(ctx context.Context, placeID string) ([]domain.UploadRecord, error) {
	return s.query(ctx, selectColumns+` WHERE place_id = ? ORDER BY seq`, placeID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.UploadRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make([]domain.UploadRecord, 0)
	for rows.Next() {
		var (
			rec            domain.UploadRecord
			thumb, preview sql.NullString
			created        string
		)
		if err := rows.Scan(&rec.ID, &rec.OriginalRef, &thumb, &preview,
			&rec.PlaceID, &rec.Dish, &rec.UploaderName, &created); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", domain.ErrStoreUnavailable, err)
		}
		if thumb.Valid {
			v := thumb.String
			rec.ThumbRef = &v
		}
		if preview.Valid {
			v := preview.String
			rec.PreviewRef = &v
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("%w: parse created_at: %v", domain.ErrStoreUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
