package mysql

// seq gives a strict insertion order; created_at alone can tie.
const createRecordsSQL = `
CREATE TABLE IF NOT EXISTS upload_records (
  seq           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  id            CHAR(36)        NOT NULL,
  original_ref  VARCHAR(1024)   NOT NULL,
  thumb_ref     VARCHAR(1024)   NULL,
  preview_ref   VARCHAR(1024)   NULL,
  place_id      VARCHAR(255)    NOT NULL,
  dish          VARCHAR(255)    NOT NULL DEFAULT '',
  uploader_name VARCHAR(255)    NOT NULL DEFAULT '',
  created_at    DATETIME(6)     NOT NULL,
  UNIQUE KEY uq_upload_records_id (id),
  KEY ix_upload_records_place (place_id, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

const insertRecordSQL = `
INSERT INTO upload_records
  (id, original_ref, thumb_ref, preview_ref, place_id, dish, uploader_name, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectRecordsSQL = `
SELECT id, original_ref, thumb_ref, preview_ref, place_id, dish, uploader_name, created_at
FROM upload_records
ORDER BY seq
`

const selectRecordsByPlaceSQL = `
SELECT id, original_ref, thumb_ref, preview_ref, place_id, dish, uploader_name, created_at
FROM upload_records
WHERE place_id = ?
ORDER BY seq
`
