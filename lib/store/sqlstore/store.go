package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/ValentinKolb/dMerge/lib/store"
	_ "modernc.org/sqlite"
)

// The whole persisted layout is a single table of (key, value) pairs.
// Values are opaque JSON text blobs and are not individually indexed.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	upsertSQL = `INSERT INTO kv_store (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;`
	selectSQL = `SELECT value FROM kv_store WHERE key = ?;`
)

type storeImpl struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary creates) a SQLite backed store at
// the given DSN. The DSN is a file path or any connection string understood
// by the modernc.org/sqlite driver.
//
// Thread-safety: the returned store is safe for concurrent use. Individual
// Put/Get calls are serialized by the database; there is no multi-key
// transaction spanning calls.
func NewSQLiteStore(dsn string) (store.IStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to open database: %v", err)
	}

	// SQLite allows only one writer at a time. Funneling all access through
	// a single connection avoids SQLITE_BUSY errors under concurrent load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, store.NewErrorf(store.RetCInternalError, "failed to create kv_store table: %v", err)
	}

	return &storeImpl{db: db}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key string, value []byte) error {
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "key must not be empty")
	}

	// A single statement is already atomic in SQLite, the explicit
	// transaction makes the all-or-nothing contract visible and keeps the
	// previous value intact on any failure.
	tx, err := s.db.Begin()
	if err != nil {
		return store.NewErrorf(store.RetCInternalError, "failed to begin transaction: %v", err)
	}

	if _, err := tx.Exec(upsertSQL, key, string(value)); err != nil {
		_ = tx.Rollback()
		return store.NewErrorf(store.RetCInternalError, "failed to upsert key %q: %v", key, err)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return store.NewErrorf(store.RetCInternalError, "failed to commit upsert for key %q: %v", key, err)
	}

	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, store.NewError(store.RetCInvalidOperation, "key must not be empty")
	}

	var value string
	err := s.db.QueryRow(selectSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		// A missing key is an explicit "absent" result, not an error.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.NewErrorf(store.RetCInternalError, "failed to read key %q: %v", key, err)
	}

	return []byte(value), true, nil
}

func (s *storeImpl) Close() error {
	if err := s.db.Close(); err != nil {
		return store.NewErrorf(store.RetCInternalError, "failed to close database: %v", err)
	}
	return nil
}
