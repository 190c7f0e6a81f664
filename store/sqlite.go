package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	engine: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT ''
		)`,
	},
	insert: `INSERT INTO items (name, value) VALUES (?, ?)`,
	get:    `SELECT name, value FROM items WHERE id = ?`,
}

// NewSQLite opens the embedded store.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite(ctx context.Context, dbPath string, queryTimeout time.Duration) (Store, error) {
	memory := dbPath == "" || dbPath == ":memory:"
	if memory {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open")
	}

	if memory {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		// Enable WAL mode for better concurrent performance.
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "sqlite: enable WAL")
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "sqlite: set busy timeout")
		}
	}

	s, err := newSQLStore(ctx, db, sqliteDialect, queryTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
