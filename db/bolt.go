package db

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// BoltDB wraps a bbolt database whose top level buckets are created on open
type BoltDB struct {
	conn *bolt.DB
}

// NewBoltDB opens (or creates) the bbolt file at path and makes sure every bucket exists
func NewBoltDB(path string, buckets ...[]byte) (*BoltDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create data directory")
		}
	}

	conn, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open bolt database")
	}

	err = conn.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create buckets")
	}
	return &BoltDB{conn: conn}, nil
}

// Close closes the bolt file
func (b *BoltDB) Close() error {
	return b.conn.Close()
}

// View runs fn in a read-only transaction
func (b *BoltDB) View(fn func(tx *bolt.Tx) error) error {
	return b.conn.View(fn)
}

// Update runs fn in a read-write transaction
func (b *BoltDB) Update(fn func(tx *bolt.Tx) error) error {
	return b.conn.Update(fn)
}
