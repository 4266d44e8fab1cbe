package consensus

import (
	"strings"

	"dag-node/logger"
	"dag-node/models"

	"go.uber.org/zap"
)

// Validator decides whether a block is structurally and semantically valid.
// It may only look at the block itself, so every node reaches the same verdict.
type Validator interface {
	IsValid(block *models.Block) bool
}

// Weigher gives the confidence a single block contributes to its chain.
type Weigher interface {
	Weight(block *models.Block) int64
}

// AcceptAll considers every block valid.
type AcceptAll struct{}

func (AcceptAll) IsValid(*models.Block) bool { return true }

// UnitWeight makes every block worth 1, so confidence tracks chain length.
type UnitWeight struct{}

func (UnitWeight) Weight(*models.Block) int64 { return 1 }

// ProofOfWork accepts blocks whose ID starts with Difficulty zero hex digits.
type ProofOfWork struct {
	Difficulty int
	Addresser  ContentAddresser
}

func (p ProofOfWork) IsValid(block *models.Block) bool {
	id, err := p.Addresser.IDOf(block)
	if err != nil {
		logger.Logger.Warn("Cannot address block for proof of work check", zap.Error(err))
		return false
	}
	return LeadingZeros(id) >= p.Difficulty
}

// WorkWeight weighs a block by the expected number of hashes behind its ID, 16^zeros.
type WorkWeight struct {
	Addresser ContentAddresser
}

// maxWorkZeros keeps 16^zeros inside an int64.
const maxWorkZeros = 15

func (w WorkWeight) Weight(block *models.Block) int64 {
	id, err := w.Addresser.IDOf(block)
	if err != nil {
		return 0
	}
	zeros := LeadingZeros(id)
	if zeros > maxWorkZeros {
		zeros = maxWorkZeros
	}
	return int64(1) << (4 * zeros)
}

// LeadingZeros counts the leading '0' characters of a hex ID.
func LeadingZeros(id string) int {
	return len(id) - len(strings.TrimLeft(id, "0"))
}
