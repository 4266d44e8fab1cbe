package repository

import (
	"dag-node/db"

	"github.com/pkg/errors"
)

// Open returns the BlockStore for a configured backend: "memory", "leveldb" or "bolt".
func Open(backend, path string, cacheSize int) (BlockStore, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "leveldb":
		ldb, err := db.NewLevelDB(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open leveldb at %s", path)
		}
		store, err := NewLevelStore(ldb, cacheSize)
		if err != nil {
			ldb.Close()
			return nil, err
		}
		return store, nil
	case "bolt":
		bdb, err := db.NewBoltDB(path, BoltBuckets...)
		if err != nil {
			return nil, err
		}
		store, err := NewBoltStore(bdb, cacheSize)
		if err != nil {
			bdb.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.Errorf("unknown store backend %q", backend)
	}
}
