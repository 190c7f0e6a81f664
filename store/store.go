package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/agentuity/itemcache/item"
	"github.com/cockroachdb/errors"
)

// DefaultQueryTimeout bounds every store round trip.
const DefaultQueryTimeout = 5 * time.Second

// Store is the durable system of record for items.
type Store interface {
	item.Repository
	// Ping checks the connection.
	Ping(ctx context.Context) error
	// Engine names the backing engine, "postgres" or "sqlite".
	Engine() string
	// Close releases the connection pool.
	Close() error
}

// dialect holds the engine specific SQL.
type dialect struct {
	engine string
	schema []string
	// insert must return the new id, either via RETURNING or LastInsertId.
	insert    string
	returning bool
	get       string
}

type sqlStore struct {
	db           *sql.DB
	d            dialect
	queryTimeout time.Duration
}

var _ Store = (*sqlStore)(nil)

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, queryTimeout time.Duration) (*sqlStore, error) {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	s := &sqlStore{db: db, d: d, queryTimeout: queryTimeout}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(qctx, stmt); err != nil {
			return nil, errors.Wrapf(err, "%s: create schema", d.engine)
		}
	}
	return s, nil
}

func (s *sqlStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *sqlStore) Insert(ctx context.Context, name, value string) (item.Item, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	it := item.Item{Name: name, Value: value}
	if s.d.returning {
		if err := s.db.QueryRowContext(qctx, s.d.insert, name, value).Scan(&it.ID); err != nil {
			return item.Item{}, errors.Wrapf(err, "%s: insert item", s.d.engine)
		}
		return it, nil
	}
	res, err := s.db.ExecContext(qctx, s.d.insert, name, value)
	if err != nil {
		return item.Item{}, errors.Wrapf(err, "%s: insert item", s.d.engine)
	}
	if it.ID, err = res.LastInsertId(); err != nil {
		return item.Item{}, errors.Wrapf(err, "%s: read inserted id", s.d.engine)
	}
	return it, nil
}

func (s *sqlStore) Get(ctx context.Context, id int64) (item.Item, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	it := item.Item{ID: id}
	err := s.db.QueryRowContext(qctx, s.d.get, id).Scan(&it.Name, &it.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, false, nil
	}
	if err != nil {
		return item.Item{}, false, errors.Wrapf(err, "%s: get item %d", s.d.engine, id)
	}
	return it, true, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return s.db.PingContext(qctx)
}

func (s *sqlStore) Engine() string {
	return s.d.engine
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
