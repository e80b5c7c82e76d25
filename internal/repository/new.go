package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"

	_ "modernc.org/sqlite"
)

type implRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies the schema.
// path may be ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string, log logger.Logger) (Repository, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serialises writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info(ctx, "Database ready at %s", path)
	return &implRepository{db: db, logger: log}, nil
}

func (r *implRepository) Close() error {
	return r.db.Close()
}
