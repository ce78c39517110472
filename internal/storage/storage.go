// Package storage opens the Record Store backend named in the configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"dishmap/internal/domain"
	"dishmap/internal/shared"
	"dishmap/internal/storage/file"
	mongostore "dishmap/internal/storage/mongo"
	mysqlrepo "dishmap/internal/storage/mysql"
	"dishmap/internal/storage/sqlite"
)

// Open returns the configured store and a function releasing its resources.
func Open(ctx context.Context, cfg shared.Config) (domain.RecordStore, func(), error) {
	noop := func() {}
	switch cfg.RecordStore {
	case "", "file":
		s, err := file.New(cfg.RecordsFile)
		return s, noop, err

	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil

	case "mysql":
		dsn, err := mysqlDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, noop, err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("db.Ping: %w", err)
		}
		repo := mysqlrepo.New(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("migrate: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil

	case "mongo":
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil

	default:
		return nil, noop, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

// mysqlDSN forces the options the repo scans rely on: DATETIME columns
// decode into time.Time, in UTC.
func mysqlDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse MYSQL_DSN: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}
