package database

import (
	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
	boltdb "github.com/kyleyee20/aevum/storage/database/bolt"
	dummydb "github.com/kyleyee20/aevum/storage/database/dummy"
	sqlxdb "github.com/kyleyee20/aevum/storage/database/sqlx"
)

// Engines understood by Open.
const (
	EngineBolt     = "bolt"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// ErrUnknownEngine is returned by Open for an engine it cannot build.
var ErrUnknownEngine = errors.New("unknown database engine")

// Open returns the record store selected by conf.Database.Engine.
func Open(conf *core.Config) (core.RecordStore, error) {
	var (
		store core.RecordStore
		err   error
	)
	switch conf.Database.Engine {
	case EngineBolt, "":
		store, err = asStore(boltdb.Open(conf.Database.Path))
	case EngineSQLite:
		store, err = asStore(sqlxdb.Open(sqlxdb.SQLite, conf.Database.Path))
	case EnginePostgres:
		if conf.Database.DSN == "" {
			return nil, errors.New("dbDsn is required for the postgres engine")
		}
		store, err = asStore(sqlxdb.Open(sqlxdb.Postgres, conf.Database.DSN))
	case EngineMemory:
		store, err = asStore(dummydb.Open())
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
	}
	return store, errors.Wrapf(err, "opening %s store", conf.Database.Engine)
}

// asStore keeps a failed open from leaking a typed nil through the interface.
func asStore[S core.RecordStore](s S, err error) (core.RecordStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
