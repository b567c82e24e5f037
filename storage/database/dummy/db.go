package dummydb

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
)

var errClosed = errors.New("dummydb: store is closed")

type (
	// DB is an in-memory core.RecordStore. Update runs on a copy of the namespace table that
	// replaces the original only when fn succeeds.
	DB struct {
		sync.RWMutex
		tables map[string]table
		closed bool
	}

	table map[string][]byte

	tx struct {
		table    table
		writable bool
	}
)

var _ core.RecordStore = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{tables: make(map[string]table)}, nil
}

func (db *DB) View(namespace string, fn func(core.RecordTx) error) error {
	db.RLock()
	defer db.RUnlock()
	if db.closed {
		return errClosed
	}
	return fn(&tx{table: db.tables[namespace]})
}

func (db *DB) Update(namespace string, fn func(core.RecordTx) error) error {
	db.Lock()
	defer db.Unlock()
	if db.closed {
		return errClosed
	}

	cp := make(table, len(db.tables[namespace]))
	for k, v := range db.tables[namespace] {
		cp[k] = v
	}
	if err := fn(&tx{table: cp, writable: true}); err != nil {
		return err
	}
	db.tables[namespace] = cp
	return nil
}

func (db *DB) Close() error {
	db.Lock()
	defer db.Unlock()
	db.closed = true
	return nil
}

func (t *tx) Get(key string) ([]byte, error) {
	v, ok := t.table[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *tx) Put(key string, value []byte) error {
	if !t.writable {
		return errors.New("dummydb: put in read-only transaction")
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.table[key] = v
	return nil
}

func (t *tx) Delete(key string) error {
	if !t.writable {
		return errors.New("dummydb: delete in read-only transaction")
	}
	delete(t.table, key)
	return nil
}
