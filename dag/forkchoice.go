package dag

import (
	"strings"

	"dag-node/metrics"
	"dag-node/models"
	"dag-node/repository"

	"github.com/pkg/errors"
)

// Compare orders two blocks of the same branch and returns -1, 0 or 1.
// A nil operand stands for "no block" and loses to any block. Then, in order:
// a valid block beats an invalid one, the higher confidence wins, the higher
// block count wins, and the greater id wins.
//
// Every node must use this exact order: it is the only consensus rule.
func Compare(a, b *models.BlockMetadata) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.BlockID == b.BlockID:
		return 0
	}

	if a.IsValid != b.IsValid {
		if a.IsValid {
			return 1
		}
		return -1
	}

	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return 1
		}
		return -1
	}

	if a.BlockCount != b.BlockCount {
		if a.BlockCount > b.BlockCount {
			return 1
		}
		return -1
	}

	return strings.Compare(a.BlockID, b.BlockID)
}

// compare looks both ids up and applies Compare. An empty id means no block.
func (n *Node) compare(a, b string) (int, error) {
	if a == b {
		return 0, nil
	}
	ma, err := n.metadataForComparison(a)
	if err != nil {
		return 0, err
	}
	mb, err := n.metadataForComparison(b)
	if err != nil {
		return 0, err
	}
	return Compare(ma, mb), nil
}

func (n *Node) metadataForComparison(id string) (*models.BlockMetadata, error) {
	if id == "" {
		return nil, nil
	}
	metadata, err := n.store.GetBlockMetadata(id)
	if errors.Is(err, repository.ErrNotFound) {
		panic(errors.Wrapf(ErrInconsistentStore, "not enough block history, no metadata for %s", id))
	}
	return metadata, err
}

// maybeUpdateHead makes a freshly resolved block the head of its branch when it is
// valid and strictly better than the current head.
func (n *Node) maybeUpdateHead(block *models.Block, metadata *models.BlockMetadata) error {
	if !metadata.IsValid {
		return nil
	}

	head, _, err := n.store.GetBranchHead(block.Branch)
	if err != nil {
		return err
	}
	cmp, err := n.compare(metadata.BlockID, head)
	if err != nil {
		return err
	}
	if cmp <= 0 {
		return nil
	}
	return n.setHead(block.Branch, metadata.BlockID)
}

func (n *Node) setHead(branch, id string) error {
	if err := n.store.SetBranchHead(branch, id); err != nil {
		return err
	}
	metrics.HeadChanges.Inc()

	if !n.headPending[branch] {
		n.headPending[branch] = true
		n.pendingHeads = append(n.pendingHeads, branch)
	}
	return nil
}
