package boltdb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/kyleyee20/aevum/core"
)

type (
	// DB is a core.RecordStore backed by a bbolt file. Each namespace is one bucket.
	DB struct {
		db *bbolt.DB
	}

	tx struct {
		bucket *bbolt.Bucket // nil in a read of a namespace never written
	}
)

var _ core.RecordStore = (*DB)(nil) // interface compliance check

// Open opens (or creates) the bolt file at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating %s", dir)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return &DB{db: db}, nil
}

func (db *DB) View(namespace string, fn func(core.RecordTx) error) error {
	return db.db.View(func(btx *bbolt.Tx) error {
		return fn(&tx{bucket: btx.Bucket([]byte(namespace))})
	})
}

func (db *DB) Update(namespace string, fn func(core.RecordTx) error) error {
	return db.db.Update(func(btx *bbolt.Tx) error {
		b, err := btx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return errors.Wrapf(err, "creating bucket %s", namespace)
		}
		return fn(&tx{bucket: b})
	})
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (t *tx) Get(key string) ([]byte, error) {
	if t.bucket == nil {
		return nil, nil
	}
	v := t.bucket.Get([]byte(key))
	if v == nil {
		return nil, nil
	}
	// v is only valid for the life of the transaction
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *tx) Put(key string, value []byte) error {
	if t.bucket == nil || !t.bucket.Writable() {
		return bbolt.ErrTxNotWritable
	}
	return t.bucket.Put([]byte(key), value)
}

func (t *tx) Delete(key string) error {
	if t.bucket == nil || !t.bucket.Writable() {
		return bbolt.ErrTxNotWritable
	}
	return t.bucket.Delete([]byte(key))
}
