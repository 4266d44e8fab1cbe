package models

// Block is the immutable payload produced by a miner or received from a peer.
// Its identifier is never trusted as sent, it is recomputed from the encoding.
type Block struct {
	Branch  string   `json:"branch"`  // name of the chain the block extends
	Parents []string `json:"parents"` // parent block IDs, empty for a genesis block
	Data    []byte   `json:"data"`    // opaque application payload
}

// IsGenesis reports whether the block has no parents.
func (b *Block) IsGenesis() bool {
	return len(b.Parents) == 0
}

// BlockMetadata is derived once per block, after every parent has its own metadata.
type BlockMetadata struct {
	BlockID    string   `json:"block_id"`
	Parents    []string `json:"parents"`
	IsValid    bool     `json:"is_valid"`
	BlockCount int64    `json:"block_count"` // 1 + sum of the parents' counts
	Confidence int64    `json:"confidence"`  // local weight + sum of the parents' confidence
}

// Clone returns a deep copy so stored blocks cannot be mutated through a caller's pointer.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := &Block{Branch: b.Branch}
	if b.Parents != nil {
		c.Parents = append([]string{}, b.Parents...)
	}
	if b.Data != nil {
		c.Data = append([]byte{}, b.Data...)
	}
	return c
}

func (m *BlockMetadata) Clone() *BlockMetadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Parents != nil {
		c.Parents = append([]string{}, m.Parents...)
	}
	return &c
}
