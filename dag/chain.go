package dag

import (
	"dag-node/models"
	"dag-node/repository"

	"github.com/pkg/errors"
)

// ChainWalker iterates a chain backwards from a start block, following only the
// first parent of each block. Merge blocks therefore expose a single lineage.
// A walker is used once: call Next until it returns false, then check Err.
type ChainWalker struct {
	store     repository.BlockStore
	next      string
	remaining int

	id       string
	metadata *models.BlockMetadata
	block    *models.Block
	err      error
}

// WalkFirstParent returns a walker over at most depth blocks starting at startID.
// The walk also ends at a block without parents or at a block the store does not have.
func (n *Node) WalkFirstParent(startID string, depth int) *ChainWalker {
	return &ChainWalker{store: n.store, next: startID, remaining: depth}
}

// Next moves to the next block of the chain and reports whether there is one.
func (w *ChainWalker) Next() bool {
	if w.err != nil || w.next == "" || w.remaining <= 0 {
		return false
	}

	block, err := w.store.GetBlockData(w.next)
	if errors.Is(err, repository.ErrNotFound) {
		w.next = ""
		return false
	}
	if err != nil {
		w.err = err
		return false
	}

	metadata, err := w.store.GetBlockMetadata(w.next)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		w.err = err
		return false
	}

	w.id, w.block, w.metadata = w.next, block, metadata
	w.remaining--
	w.next = ""
	if len(block.Parents) > 0 {
		w.next = block.Parents[0]
	}
	return true
}

// ID is the id of the current block.
func (w *ChainWalker) ID() string { return w.id }

// Block is the raw current block.
func (w *ChainWalker) Block() *models.Block { return w.block }

// Metadata is nil for a block still waiting on a parent.
func (w *ChainWalker) Metadata() *models.BlockMetadata { return w.metadata }

// Err returns the store error that ended the walk, if any.
func (w *ChainWalker) Err() error { return w.err }

// ChainBlockIDs lists the ids of the first parent chain from startID, newest first.
func (n *Node) ChainBlockIDs(startID string, depth int) ([]string, error) {
	var ids []string
	w := n.WalkFirstParent(startID, depth)
	for w.Next() {
		ids = append(ids, w.ID())
	}
	return ids, w.Err()
}

// ChainBlockMetadata lists the metadata along the first parent chain, skipping blocks without metadata.
func (n *Node) ChainBlockMetadata(startID string, depth int) ([]*models.BlockMetadata, error) {
	var list []*models.BlockMetadata
	w := n.WalkFirstParent(startID, depth)
	for w.Next() {
		if w.Metadata() != nil {
			list = append(list, w.Metadata())
		}
	}
	return list, w.Err()
}

func (n *Node) ChainBlockData(startID string, depth int) ([]*models.Block, error) {
	var list []*models.Block
	w := n.WalkFirstParent(startID, depth)
	for w.Next() {
		list = append(list, w.Block())
	}
	return list, w.Err()
}

// Branches lists every branch that has a head.
func (n *Node) Branches() ([]string, error) {
	return n.store.Branches()
}

// BranchHead returns the current head of a branch, ok is false when the branch has no block yet.
func (n *Node) BranchHead(branch string) (head string, ok bool, err error) {
	return n.store.GetBranchHead(branch)
}

// BranchHeadLog returns up to depth past heads of a branch, most recent first.
// The result is nil for an unknown branch.
func (n *Node) BranchHeadLog(branch string, depth int) ([]string, error) {
	log, err := n.store.GetBranch(branch)
	if err != nil || log == nil {
		return nil, err
	}
	if depth < 0 {
		depth = 0
	}
	if depth > len(log) {
		depth = len(log)
	}

	recent := make([]string, 0, depth)
	for i := len(log) - 1; i >= len(log)-depth; i-- {
		recent = append(recent, log[i])
	}
	return recent, nil
}
