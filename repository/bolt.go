package repository

import (
	"sync"

	"dag-node/db"
	"dag-node/models"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketBlocks   = []byte("blocks")   // id -> block JSON
	bucketMetadata = []byte("metadata") // id -> metadata JSON
	bucketHeads    = []byte("heads")    // branch -> nested bucket of seq (big-endian) -> head id
	bucketWaiting  = []byte("waiting")  // awaited id -> nested bucket of waiting id -> empty
)

// BoltBuckets lists the top level buckets a BoltStore needs.
var BoltBuckets = [][]byte{bucketBlocks, bucketMetadata, bucketHeads, bucketWaiting}

// BoltStore implements BlockStore with bbolt, one bucket per concern
type BoltStore struct {
	db    *db.BoltDB
	cache *metadataCache

	mu            sync.Mutex
	blockCount    int
	metadataCount int
}

var _ BlockStore = (*BoltStore)(nil)

// NewBoltStore wraps a BoltDB opened with BoltBuckets
func NewBoltStore(bdb *db.BoltDB, cacheSize int) (*BoltStore, error) {
	cache, err := newMetadataCache(cacheSize)
	if err != nil {
		return nil, err
	}
	s := &BoltStore{db: bdb, cache: cache}
	err = bdb.View(func(tx *bolt.Tx) error {
		s.blockCount = tx.Bucket(bucketBlocks).Stats().KeyN
		s.metadataCount = tx.Bucket(bucketMetadata).Stats().KeyN
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count stored blocks")
	}
	return s, nil
}

func (s *BoltStore) get(bucket []byte, id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(id)); v != nil {
			data = append([]byte{}, v...)
		}
		return nil
	})
	return data, err
}

// putOnce writes id into bucket unless it is already there
func (s *BoltStore) putOnce(bucket []byte, id string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) != nil {
			return errors.Wrapf(ErrAlreadyExists, "%s %s", bucket, id)
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) HasBlockData(id string) (bool, error) {
	data, err := s.get(bucketBlocks, id)
	return data != nil, err
}

func (s *BoltStore) GetBlockData(id string) (*models.Block, error) {
	data, err := s.get(bucketBlocks, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read block %s", id)
	}
	if data == nil {
		return nil, errors.Wrapf(ErrNotFound, "block %s", id)
	}
	return decodeBlock(data)
}

func (s *BoltStore) SetBlockData(id string, block *models.Block) error {
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}
	if err := s.putOnce(bucketBlocks, id, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.blockCount++
	s.mu.Unlock()
	return nil
}

func (s *BoltStore) HasBlockMetadata(id string) (bool, error) {
	if s.cache.contains(id) {
		return true, nil
	}
	data, err := s.get(bucketMetadata, id)
	return data != nil, err
}

func (s *BoltStore) GetBlockMetadata(id string) (*models.BlockMetadata, error) {
	if metadata, ok := s.cache.get(id); ok {
		return metadata, nil
	}
	data, err := s.get(bucketMetadata, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read metadata %s", id)
	}
	if data == nil {
		return nil, errors.Wrapf(ErrNotFound, "metadata %s", id)
	}
	metadata, err := decodeMetadata(data)
	if err != nil {
		return nil, err
	}
	s.cache.add(id, metadata)
	return metadata, nil
}

func (s *BoltStore) SetBlockMetadata(id string, metadata *models.BlockMetadata) error {
	data, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	if err := s.putOnce(bucketMetadata, id, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.metadataCount++
	s.mu.Unlock()
	s.cache.add(id, metadata)
	return nil
}

func (s *BoltStore) GetBranch(name string) ([]string, error) {
	var log []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHeads).Bucket([]byte(name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			log = append(log, string(v))
			return nil
		})
	})
	return log, err
}

func (s *BoltStore) GetBranchHead(name string) (string, bool, error) {
	var head string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHeads).Bucket([]byte(name))
		if b == nil {
			return nil
		}
		if k, v := b.Cursor().Last(); k != nil {
			head, found = string(v), true
		}
		return nil
	})
	return head, found, err
}

func (s *BoltStore) SetBranchHead(name, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketHeads).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return errors.Wrapf(err, "failed to create branch %s", name)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), []byte(id))
	})
}

func (s *BoltStore) Branches() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeads).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) RegisterWaitingBlock(waitingID, awaitedID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketWaiting).CreateBucketIfNotExists([]byte(awaitedID))
		if err != nil {
			return err
		}
		return b.Put([]byte(waitingID), []byte{})
	})
}

func (s *BoltStore) BrowseWaitingBlocksAndForget(awaitedID string, visit func(waitingID string)) error {
	var waiters []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		waiting := tx.Bucket(bucketWaiting)
		b := waiting.Bucket([]byte(awaitedID))
		if b == nil {
			return nil
		}
		if err := b.ForEach(func(k, _ []byte) error {
			waiters = append(waiters, string(k))
			return nil
		}); err != nil {
			return err
		}
		return waiting.DeleteBucket([]byte(awaitedID))
	})
	if err != nil {
		return errors.Wrapf(err, "failed to forget waiters of %s", awaitedID)
	}

	for _, id := range waiters {
		visit(id)
	}
	return nil
}

func (s *BoltStore) BlockIDs(visit func(id string, block *models.Block) error) error {
	type entry struct {
		id   string
		data []byte
	}
	var entries []entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, v []byte) error {
			entries = append(entries, entry{id: string(k), data: append([]byte{}, v...)})
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		block, err := decodeBlock(e.data)
		if err != nil {
			return err
		}
		if err := visit(e.id, block); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockCount
}

func (s *BoltStore) BlockMetadataCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataCount
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
