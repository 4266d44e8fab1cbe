package repository

import (
	"encoding/json"

	"dag-node/models"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by getters when the requested key is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when block data or metadata is written twice.
	ErrAlreadyExists = errors.New("already exists")
)

// BlockStore abstracts the storage layer from the node logic.
// It holds raw blocks, their derived metadata, the head log of every branch and
// the index of blocks waiting for a missing parent. It applies no policy.
type BlockStore interface {
	HasBlockData(id string) (bool, error)
	GetBlockData(id string) (*models.Block, error)
	// SetBlockData stores a block once; a second write for the same id fails with ErrAlreadyExists.
	SetBlockData(id string, block *models.Block) error

	HasBlockMetadata(id string) (bool, error)
	GetBlockMetadata(id string) (*models.BlockMetadata, error)
	SetBlockMetadata(id string, metadata *models.BlockMetadata) error

	// GetBranch returns the head log of a branch, oldest first, or nil for an unknown branch.
	GetBranch(name string) ([]string, error)
	GetBranchHead(name string) (string, bool, error)
	// SetBranchHead appends id to the head log, creating the branch on first use.
	SetBranchHead(name, id string) error
	Branches() ([]string, error)

	// RegisterWaitingBlock records that waitingID cannot be resolved before awaitedID.
	RegisterWaitingBlock(waitingID, awaitedID string) error
	// BrowseWaitingBlocksAndForget visits every block waiting on awaitedID once, then drops the entry.
	BrowseWaitingBlocksAndForget(awaitedID string, visit func(waitingID string)) error

	// BlockIDs visits every stored raw block. Returning an error from visit stops the walk.
	BlockIDs(visit func(id string, block *models.Block) error) error
	BlockCount() int
	BlockMetadataCount() int

	Close() error
}

func encodeBlock(block *models.Block) ([]byte, error) {
	data, err := json.Marshal(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode block")
	}
	return data, nil
}

func decodeBlock(data []byte) (*models.Block, error) {
	var block models.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, errors.Wrap(err, "failed to decode block")
	}
	return &block, nil
}

func encodeMetadata(metadata *models.BlockMetadata) ([]byte, error) {
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode block metadata")
	}
	return data, nil
}

func decodeMetadata(data []byte) (*models.BlockMetadata, error) {
	var metadata models.BlockMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, errors.Wrap(err, "failed to decode block metadata")
	}
	return &metadata, nil
}
