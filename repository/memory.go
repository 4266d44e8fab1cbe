package repository

import (
	"sort"
	"sync"

	"dag-node/models"

	"github.com/pkg/errors"
)

// MemoryStore keeps everything in maps. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]*models.Block
	metadata map[string]*models.BlockMetadata
	// head log by branch, oldest first
	headLog map[string][]string
	// awaited block -> waiting blocks, in registration order
	waiting map[string][]string
}

// NewMemoryStore creates and returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]*models.Block),
		metadata: make(map[string]*models.BlockMetadata),
		headLog:  make(map[string][]string),
		waiting:  make(map[string][]string),
	}
}

var _ BlockStore = (*MemoryStore)(nil)

func (s *MemoryStore) HasBlockData(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok, nil
}

func (s *MemoryStore) GetBlockData(id string) (*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.data[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "block %s", id)
	}
	return block.Clone(), nil
}

func (s *MemoryStore) SetBlockData(id string, block *models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		return errors.Wrapf(ErrAlreadyExists, "block %s", id)
	}
	s.data[id] = block.Clone()
	return nil
}

func (s *MemoryStore) HasBlockMetadata(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.metadata[id]
	return ok, nil
}

func (s *MemoryStore) GetBlockMetadata(id string) (*models.BlockMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metadata, ok := s.metadata[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "metadata %s", id)
	}
	return metadata.Clone(), nil
}

func (s *MemoryStore) SetBlockMetadata(id string, metadata *models.BlockMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metadata[id]; ok {
		return errors.Wrapf(ErrAlreadyExists, "metadata %s", id)
	}
	s.metadata[id] = metadata.Clone()
	return nil
}

func (s *MemoryStore) GetBranch(name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.headLog[name]
	if !ok {
		return nil, nil
	}
	return append([]string{}, log...), nil
}

func (s *MemoryStore) GetBranchHead(name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.headLog[name]
	if len(log) == 0 {
		return "", false, nil
	}
	return log[len(log)-1], true, nil
}

func (s *MemoryStore) SetBranchHead(name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headLog[name] = append(s.headLog[name], id)
	return nil
}

func (s *MemoryStore) Branches() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.headLog))
	for name := range s.headLog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) RegisterWaitingBlock(waitingID, awaitedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.waiting[awaitedID] {
		if id == waitingID {
			return nil
		}
	}
	s.waiting[awaitedID] = append(s.waiting[awaitedID], waitingID)
	return nil
}

func (s *MemoryStore) BrowseWaitingBlocksAndForget(awaitedID string, visit func(waitingID string)) error {
	s.mu.Lock()
	waiters, ok := s.waiting[awaitedID]
	delete(s.waiting, awaitedID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	for _, id := range waiters {
		visit(id)
	}
	return nil
}

func (s *MemoryStore) BlockIDs(visit func(id string, block *models.Block) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		block, err := s.GetBlockData(id)
		if err != nil {
			return err
		}
		if err := visit(id, block); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) BlockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) BlockMetadataCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metadata)
}

func (s *MemoryStore) Close() error {
	return nil
}
