package dag

import (
	"math"
	"sync"

	"dag-node/consensus"
	"dag-node/logger"
	"dag-node/metrics"
	"dag-node/models"
	"dag-node/repository"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Node ingests blocks in any order, derives their metadata once all parents are known
// and keeps the head of every branch on the best block according to Compare.
// The store is the only state that matters; the node never keeps copies of blocks.
type Node struct {
	store     repository.BlockStore
	addresser consensus.ContentAddresser
	validator consensus.Validator
	weigher   consensus.Weigher

	// mux serializes registrations, including their wake-up cascade, and guards the pending events
	mux           sync.Mutex
	pendingBlocks []string
	pendingHeads  []string
	headPending   map[string]bool
	wake          chan struct{}

	// dispatchMux keeps replays and flushes from interleaving
	dispatchMux  sync.Mutex
	listenersMux sync.Mutex
	listeners    []listener
}

// NewNode builds a node over store. Blocks left pending by a previous run stay parked in the
// store's waiting index and resolve when their parents arrive.
func NewNode(store repository.BlockStore, addresser consensus.ContentAddresser, validator consensus.Validator, weigher consensus.Weigher) *Node {
	n := &Node{
		store:       store,
		addresser:   addresser,
		validator:   validator,
		weigher:     weigher,
		headPending: make(map[string]bool),
		wake:        make(chan struct{}, 1),
	}
	n.updatePendingGauge()
	return n
}

// updatePendingGauge derives the pending count from the store so it survives restarts
func (n *Node) updatePendingGauge() {
	metrics.BlocksPending.Set(float64(n.store.BlockCount() - n.store.BlockMetadataCount()))
}

func checkShape(claimedID string, block *models.Block) error {
	if claimedID == "" {
		return errors.Wrap(ErrMalformedBlock, "missing block id")
	}
	if block == nil {
		return errors.Wrap(ErrMalformedBlock, "missing block")
	}
	if block.Branch == "" {
		return errors.Wrap(ErrMalformedBlock, "missing branch")
	}
	for i, parent := range block.Parents {
		if parent == "" {
			return errors.Wrapf(ErrMalformedBlock, "empty parent id at position %d", i)
		}
	}
	return nil
}

// RegisterBlock stores a block received under claimedID and resolves it.
// It returns the block metadata, or nil metadata and no error while the block waits for a parent.
// Registering a known block again returns its current metadata, retrying its resolution
// first when it is still pending.
func (n *Node) RegisterBlock(claimedID string, block *models.Block) (*models.BlockMetadata, error) {
	if err := checkShape(claimedID, block); err != nil {
		metrics.BlocksRejected.WithLabelValues(metrics.ReasonMalformed).Inc()
		logger.Logger.Warn("Invalid block, aborting registration",
			zap.String("block_id", claimedID), zap.Error(err))
		return nil, err
	}

	n.mux.Lock()
	defer n.mux.Unlock()

	known, err := n.store.HasBlockData(claimedID)
	if err != nil {
		return nil, err
	}
	if known {
		return n.retryPending(claimedID)
	}

	id, err := n.addresser.IDOf(block)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to address block %s", claimedID)
	}
	if id != claimedID {
		metrics.BlocksRejected.WithLabelValues(metrics.ReasonIdentityMismatch).Inc()
		logger.Logger.Warn("Skipping a block with wrong advertised id",
			zap.String("advertised_id", claimedID), zap.String("computed_id", id))
		return nil, errors.Wrapf(ErrIdentityMismatch, "advertised %s, computed %s", claimedID, id)
	}

	if err := n.store.SetBlockData(id, block); err != nil {
		return nil, err
	}
	metrics.BlocksRegistered.Inc()

	metadata, err := n.resolve(id, block)
	n.updatePendingGauge()
	n.signal()
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		logger.Logger.Debug("Block waits for its parents",
			zap.String("block_id", id), zap.Strings("parents", block.Parents))
	}
	return metadata, nil
}

// retryPending returns the metadata of a stored block. A block without metadata is resolved
// again, which recovers blocks whose wake-up was cut short by a store failure.
func (n *Node) retryPending(id string) (*models.BlockMetadata, error) {
	metadata, err := n.store.GetBlockMetadata(id)
	if !errors.Is(err, repository.ErrNotFound) {
		return metadata, err
	}

	block, err := n.store.GetBlockData(id)
	if err != nil {
		return nil, err
	}
	metadata, err = n.resolve(id, block)
	n.updatePendingGauge()
	n.signal()
	return metadata, err
}

// resolve computes the metadata of a freshly stored block, then wakes up
// every block that was waiting on it, directly or transitively.
// Once metadata is stored the cascade always runs, even if the head update failed.
func (n *Node) resolve(id string, block *models.Block) (*models.BlockMetadata, error) {
	metadata, resolved, err := n.processMetadata(id, block)
	if !resolved {
		return metadata, err
	}
	if wakeErr := n.wakeUp(id); err == nil {
		err = wakeErr
	}
	return metadata, err
}

// wakeUp drains the waiting index breadth first from id. Each awaited id is consumed
// from the index once, so the loop ends and its depth never grows the stack.
// A failure on one waiter is logged and the cascade goes on; the first error is returned.
// A waiter dropped that way resolves when it is registered again.
func (n *Node) wakeUp(id string) error {
	var firstErr error
	fail := func(err error, waitingID, awaited string) {
		logger.Logger.Error("Wake-up of a waiting block failed",
			zap.String("block_id", waitingID), zap.String("triggered_by", awaited), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	queue := []string{id}
	for len(queue) > 0 {
		awaited := queue[0]
		queue = queue[1:]

		var waiting []string
		err := n.store.BrowseWaitingBlocksAndForget(awaited, func(waitingID string) {
			waiting = append(waiting, waitingID)
		})
		if err != nil {
			fail(err, "", awaited)
			continue
		}

		for _, waitingID := range waiting {
			block, err := n.store.GetBlockData(waitingID)
			if errors.Is(err, repository.ErrNotFound) {
				logger.Logger.Error("Cannot find data of a waiting block",
					zap.String("block_id", waitingID), zap.String("triggered_by", awaited))
				continue
			}
			if err != nil {
				fail(err, waitingID, awaited)
				continue
			}

			_, resolved, err := n.processMetadata(waitingID, block)
			if err != nil {
				fail(err, waitingID, awaited)
			}
			if resolved {
				queue = append(queue, waitingID)
			}
		}
	}
	return firstErr
}

// processMetadata computes and stores the metadata of id when every parent has metadata.
// Otherwise it parks id on each missing parent. resolved reports a metadata creation.
func (n *Node) processMetadata(id string, block *models.Block) (metadata *models.BlockMetadata, resolved bool, err error) {
	has, err := n.store.HasBlockMetadata(id)
	if err != nil {
		return nil, false, err
	}
	if has {
		metadata, err = n.store.GetBlockMetadata(id)
		return metadata, false, err
	}

	var missing []string
	for _, parentID := range block.Parents {
		has, err := n.store.HasBlockMetadata(parentID)
		if err != nil {
			return nil, false, err
		}
		if !has {
			missing = append(missing, parentID)
		}
	}
	if len(missing) > 0 {
		for _, parentID := range missing {
			if err := n.store.RegisterWaitingBlock(id, parentID); err != nil {
				return nil, false, err
			}
		}
		return nil, false, nil
	}

	metadata, err = n.computeMetadata(id, block)
	if err != nil {
		return nil, false, err
	}
	if err := n.store.SetBlockMetadata(id, metadata); err != nil {
		return nil, false, err
	}
	metrics.BlocksResolved.Inc()
	n.pendingBlocks = append(n.pendingBlocks, id)

	if err := n.maybeUpdateHead(block, metadata); err != nil {
		return metadata, true, errors.Wrapf(err, "cannot update head of %q with %s", block.Branch, id)
	}
	return metadata, true, nil
}

// computeMetadata sums the parents' counters. Shared ancestors of a merge block are counted once per path,
// so the sums grow exponentially with merge depth; they saturate at math.MaxInt64 instead of wrapping.
func (n *Node) computeMetadata(id string, block *models.Block) (*models.BlockMetadata, error) {
	blockCount := int64(1)
	confidence := n.weigher.Weight(block)

	for _, parentID := range block.Parents {
		parent, err := n.store.GetBlockMetadata(parentID)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot build metadata of %s", id)
		}
		blockCount = saturatingAdd(blockCount, parent.BlockCount)
		confidence = saturatingAdd(confidence, parent.Confidence)
	}

	return &models.BlockMetadata{
		BlockID:    id,
		Parents:    append([]string{}, block.Parents...),
		IsValid:    n.validator.IsValid(block),
		BlockCount: blockCount,
		Confidence: confidence,
	}, nil
}

func saturatingAdd(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

// KnowsBlock reports whether the raw block is stored, resolved or not.
func (n *Node) KnowsBlock(id string) (bool, error) {
	return n.store.HasBlockData(id)
}

// KnowsBlockAsValidated reports whether the block has metadata.
func (n *Node) KnowsBlockAsValidated(id string) (bool, error) {
	return n.store.HasBlockMetadata(id)
}

// BlockCount is the number of stored blocks, pending ones included.
func (n *Node) BlockCount() int {
	return n.store.BlockCount()
}

// BlockMetadataCount is the number of resolved blocks.
func (n *Node) BlockMetadataCount() int {
	return n.store.BlockMetadataCount()
}
