package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"dishmap/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo is the MySQL Record Store. Each append is a single-row INSERT, so
// concurrent writers cannot overwrite one another.
type Repo struct{ db *sql.DB }

var _ domain.RecordStore = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Migrate creates the records table when missing.
func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createRecordsSQL)
	return err
}

func (r *Repo) Append(ctx context.Context, rec domain.UploadRecord) (string, error) {
	_, err := r.db.ExecContext(ctx, insertRecordSQL,
		rec.ID,
		rec.OriginalRef,
		valStr(rec.ThumbRef),
		valStr(rec.PreviewRef),
		rec.PlaceID,
		rec.Dish,
		rec.UploaderName,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert record: %v", domain.ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

func (r *Repo) All(ctx context.Context) ([]domain.UploadRecord, error) {
	return r.query(ctx, selectRecordsSQL)
}

func (r *Repo) FindByPlace(ctx context.Context, placeID string) ([]domain.UploadRecord, error) {
	return r.query(ctx, selectRecordsByPlaceSQL, placeID)
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]domain.UploadRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make([]domain.UploadRecord, 0)
	for rows.Next() {
		var rec domain.UploadRecord
		var thumb, preview sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.OriginalRef,
			&thumb,
			&preview,
			&rec.PlaceID,
			&rec.Dish,
			&rec.UploaderName,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", domain.ErrStoreUnavailable, err)
		}
		if thumb.Valid {
			s := thumb.String
			rec.ThumbRef = &s
		}
		if preview.Valid {
			s := preview.String
			rec.PreviewRef = &s
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}
