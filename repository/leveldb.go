package repository

import (
	"encoding/binary"
	"encoding/hex"
	"sync"

	"dag-node/db"
	"dag-node/models"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

// Key layout. Branch names and awaited ids are hex encoded inside composite keys
// so that a prefix scan can never match a longer name.
var (
	blockPrefix    = []byte("b/") // b/<id> -> block JSON
	metadataPrefix = []byte("m/") // m/<id> -> metadata JSON
	branchPrefix   = []byte("r/") // r/<hex branch> -> branch name
	headPrefix     = []byte("h/") // h/<hex branch>/<seq BE> -> head id
	waitPrefix     = []byte("w/") // w/<hex awaited>/<hex waiting> -> waiting id
)

func concatKey(parts ...[]byte) []byte {
	var key []byte
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func hexSegment(s string) []byte {
	return []byte(hex.EncodeToString([]byte(s)))
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// LevelStore implements BlockStore on top of LevelDB
type LevelStore struct {
	db    *db.LevelDB
	cache *metadataCache

	mu            sync.Mutex
	blockCount    int
	metadataCount int
	branchLen     map[string]uint64
}

var _ BlockStore = (*LevelStore)(nil)

// NewLevelStore wraps an open LevelDB and loads the counters kept in memory
func NewLevelStore(ldb *db.LevelDB, cacheSize int) (*LevelStore, error) {
	cache, err := newMetadataCache(cacheSize)
	if err != nil {
		return nil, err
	}
	s := &LevelStore{db: ldb, cache: cache, branchLen: make(map[string]uint64)}

	if s.blockCount, err = s.countPrefix(blockPrefix); err != nil {
		return nil, err
	}
	if s.metadataCount, err = s.countPrefix(metadataPrefix); err != nil {
		return nil, err
	}
	branches, err := s.Branches()
	if err != nil {
		return nil, err
	}
	for _, name := range branches {
		n, err := s.countPrefix(concatKey(headPrefix, hexSegment(name), []byte("/")))
		if err != nil {
			return nil, err
		}
		s.branchLen[name] = uint64(n)
	}
	return s, nil
}

func (s *LevelStore) countPrefix(prefix []byte) (int, error) {
	iter := s.db.NewPrefixIterator(prefix)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

func (s *LevelStore) HasBlockData(id string) (bool, error) {
	return s.db.Has(concatKey(blockPrefix, []byte(id)))
}

func (s *LevelStore) GetBlockData(id string) (*models.Block, error) {
	data, err := s.db.Get(concatKey(blockPrefix, []byte(id)))
	if err == db.ErrNotFound {
		return nil, errors.Wrapf(ErrNotFound, "block %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read block %s", id)
	}
	return decodeBlock(data)
}

func (s *LevelStore) SetBlockData(id string, block *models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := concatKey(blockPrefix, []byte(id))
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(ErrAlreadyExists, "block %s", id)
	}
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}
	if err := s.db.Put(key, data); err != nil {
		return errors.Wrapf(err, "failed to write block %s", id)
	}
	s.blockCount++
	return nil
}

func (s *LevelStore) HasBlockMetadata(id string) (bool, error) {
	if s.cache.contains(id) {
		return true, nil
	}
	return s.db.Has(concatKey(metadataPrefix, []byte(id)))
}

func (s *LevelStore) GetBlockMetadata(id string) (*models.BlockMetadata, error) {
	if metadata, ok := s.cache.get(id); ok {
		return metadata, nil
	}
	data, err := s.db.Get(concatKey(metadataPrefix, []byte(id)))
	if err == db.ErrNotFound {
		return nil, errors.Wrapf(ErrNotFound, "metadata %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read metadata %s", id)
	}
	metadata, err := decodeMetadata(data)
	if err != nil {
		return nil, err
	}
	s.cache.add(id, metadata)
	return metadata, nil
}

func (s *LevelStore) SetBlockMetadata(id string, metadata *models.BlockMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := concatKey(metadataPrefix, []byte(id))
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(ErrAlreadyExists, "metadata %s", id)
	}
	data, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	if err := s.db.Put(key, data); err != nil {
		return errors.Wrapf(err, "failed to write metadata %s", id)
	}
	s.metadataCount++
	s.cache.add(id, metadata)
	return nil
}

func (s *LevelStore) GetBranch(name string) ([]string, error) {
	iter := s.db.NewPrefixIterator(concatKey(headPrefix, hexSegment(name), []byte("/")))
	defer iter.Release()

	var log []string
	for iter.Next() {
		log = append(log, string(iter.Value()))
	}
	return log, iter.Error()
}

func (s *LevelStore) GetBranchHead(name string) (string, bool, error) {
	s.mu.Lock()
	n := s.branchLen[name]
	s.mu.Unlock()
	if n == 0 {
		return "", false, nil
	}

	data, err := s.db.Get(concatKey(headPrefix, hexSegment(name), []byte("/"), seqKey(n-1)))
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read head of branch %s", name)
	}
	return string(data), true, nil
}

func (s *LevelStore) SetBranchHead(name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, known := s.branchLen[name]
	batch := new(leveldb.Batch)
	if !known {
		batch.Put(concatKey(branchPrefix, hexSegment(name)), []byte(name))
	}
	batch.Put(concatKey(headPrefix, hexSegment(name), []byte("/"), seqKey(seq)), []byte(id))
	if err := s.db.Write(batch); err != nil {
		return errors.Wrapf(err, "failed to append head of branch %s", name)
	}
	s.branchLen[name] = seq + 1
	return nil
}

func (s *LevelStore) Branches() ([]string, error) {
	iter := s.db.NewPrefixIterator(branchPrefix)
	defer iter.Release()

	var names []string
	for iter.Next() {
		names = append(names, string(iter.Value()))
	}
	return names, iter.Error()
}

func (s *LevelStore) RegisterWaitingBlock(waitingID, awaitedID string) error {
	key := concatKey(waitPrefix, hexSegment(awaitedID), []byte("/"), hexSegment(waitingID))
	return s.db.Put(key, []byte(waitingID))
}

func (s *LevelStore) BrowseWaitingBlocksAndForget(awaitedID string, visit func(waitingID string)) error {
	iter := s.db.NewPrefixIterator(concatKey(waitPrefix, hexSegment(awaitedID), []byte("/")))
	var waiters []string
	batch := new(leveldb.Batch)
	for iter.Next() {
		waiters = append(waiters, string(iter.Value()))
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	if len(waiters) == 0 {
		return nil
	}

	if err := s.db.Write(batch); err != nil {
		return errors.Wrapf(err, "failed to forget waiters of %s", awaitedID)
	}
	for _, id := range waiters {
		visit(id)
	}
	return nil
}

func (s *LevelStore) BlockIDs(visit func(id string, block *models.Block) error) error {
	iter := s.db.NewPrefixIterator(blockPrefix)
	defer iter.Release()

	for iter.Next() {
		block, err := decodeBlock(iter.Value())
		if err != nil {
			return err
		}
		if err := visit(string(iter.Key()[len(blockPrefix):]), block); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *LevelStore) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockCount
}

func (s *LevelStore) BlockMetadataCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataCount
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
