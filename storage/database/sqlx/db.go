package sqlxdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/kyleyee20/aevum/core"
)

// Supported drivers.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	namespace  TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, name)
)`

type (
	// DB is a core.RecordStore on a single SQL table keyed by (namespace, name).
	DB struct {
		db *sqlx.DB
	}

	tx struct {
		tx        *sqlx.Tx
		namespace string
		writable  bool
	}
)

var _ core.RecordStore = (*DB)(nil) // interface compliance check

// Open connects with driver (Postgres or SQLite) and creates the records table when missing.
// For SQLite, dsn is the database file path.
func Open(driver, dsn string) (*DB, error) {
	if driver == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == SQLite {
		// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY between them
		db.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err = db.Exec(p); err != nil {
				_ = db.Close()
				return nil, errors.Wrapf(err, "applying %q", p)
			}
		}
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating records table")
	}
	return &DB{db: db}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func (db *DB) View(namespace string, fn func(core.RecordTx) error) error {
	return db.run(namespace, false, fn)
}

func (db *DB) Update(namespace string, fn func(core.RecordTx) error) error {
	return db.run(namespace, true, fn)
}

func (db *DB) run(namespace string, writable bool, fn func(core.RecordTx) error) error {
	sqlTx, err := db.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(&tx{tx: sqlTx, namespace: namespace, writable: writable}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if !writable {
		return sqlTx.Rollback()
	}
	return errors.Wrap(sqlTx.Commit(), "committing transaction")
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (t *tx) Get(key string) ([]byte, error) {
	var value string
	q := t.tx.Rebind(`SELECT value FROM records WHERE namespace = ? AND name = ?`)
	if err := t.tx.Get(&value, q, t.namespace, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(value), nil
}

func (t *tx) Put(key string, value []byte) error {
	if !t.writable {
		return errors.New("sqlxdb: put in read-only transaction")
	}
	q := t.tx.Rebind(`
		INSERT INTO records (namespace, name, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	_, err := t.tx.Exec(q, t.namespace, key, string(value), core.NowFunc().UTC())
	return err
}

func (t *tx) Delete(key string) error {
	if !t.writable {
		return errors.New("sqlxdb: delete in read-only transaction")
	}
	_, err := t.tx.Exec(t.tx.Rebind(`DELETE FROM records WHERE namespace = ? AND name = ?`), t.namespace, key)
	return err
}
