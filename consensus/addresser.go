package consensus

import (
	"encoding/hex"
	"encoding/json"

	"dag-node/models"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// ContentAddresser derives a block identifier from the block's bytes.
// Implementations must be pure: same block, same ID, on every node.
type ContentAddresser interface {
	IDOf(block *models.Block) (string, error)
}

// SHA3Addresser hashes the JSON encoding of a block with SHA3-256.
type SHA3Addresser struct{}

// IDOf returns the hex encoded SHA3-256 digest of the block encoding
func (SHA3Addresser) IDOf(block *models.Block) (string, error) {
	if block == nil {
		return "", errors.New("cannot address a nil block")
	}
	data, err := Encode(block)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Encode returns the canonical encoding of a block. Field order is fixed by the struct.
func Encode(block *models.Block) ([]byte, error) {
	parents := block.Parents
	if parents == nil {
		parents = []string{}
	}
	data, err := json.Marshal(&models.Block{
		Branch:  block.Branch,
		Parents: parents,
		Data:    block.Data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode block")
	}
	return data, nil
}
