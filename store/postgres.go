package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	engine: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT ''
		)`,
	},
	insert:    `INSERT INTO items (name, value) VALUES ($1, $2) RETURNING id`,
	returning: true,
	get:       `SELECT name, value FROM items WHERE id = $1`,
}

// NewPostgres connects to PostgreSQL using a lib/pq DSN or URL, verifies the
// connection and creates the items table if needed.
func NewPostgres(ctx context.Context, dsn string, queryTimeout time.Duration) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, queryTimeoutOrDefault(queryTimeout))
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	s, err := newSQLStore(ctx, db, postgresDialect, queryTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func queryTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultQueryTimeout
	}
	return d
}
