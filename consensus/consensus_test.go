package consensus

import (
	"strconv"
	"testing"

	"dag-node/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA3AddresserIsDeterministic(t *testing.T) {
	block := &models.Block{Branch: "main", Parents: []string{"aa", "bb"}, Data: []byte("hello")}
	first, err := SHA3Addresser{}.IDOf(block)
	require.NoError(t, err)
	second, err := SHA3Addresser{}.IDOf(&models.Block{Branch: "main", Parents: []string{"aa", "bb"}, Data: []byte("hello")})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestSHA3AddresserDependsOnEveryField(t *testing.T) {
	base := &models.Block{Branch: "main", Parents: []string{"aa"}, Data: []byte("x")}
	baseID, err := SHA3Addresser{}.IDOf(base)
	require.NoError(t, err)

	variants := []*models.Block{
		{Branch: "side", Parents: []string{"aa"}, Data: []byte("x")},
		{Branch: "main", Parents: []string{"ab"}, Data: []byte("x")},
		{Branch: "main", Parents: []string{"aa"}, Data: []byte("y")},
		{Branch: "main", Parents: []string{"aa", "bb"}, Data: []byte("x")},
	}
	for _, v := range variants {
		id, err := SHA3Addresser{}.IDOf(v)
		require.NoError(t, err)
		assert.NotEqual(t, baseID, id)
	}
}

func TestNilAndEmptyParentsAddressTheSame(t *testing.T) {
	a, err := SHA3Addresser{}.IDOf(&models.Block{Branch: "main"})
	require.NoError(t, err)
	b, err := SHA3Addresser{}.IDOf(&models.Block{Branch: "main", Parents: []string{}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSHA3AddresserRejectsNil(t *testing.T) {
	_, err := SHA3Addresser{}.IDOf(nil)
	assert.Error(t, err)
}

// mine searches a nonce so the block ID has at least zeros leading zeros.
func mine(t *testing.T, zeros int) *models.Block {
	t.Helper()
	for nonce := 0; nonce < 1<<20; nonce++ {
		block := &models.Block{Branch: "main", Data: []byte(strconv.Itoa(nonce))}
		id, err := SHA3Addresser{}.IDOf(block)
		require.NoError(t, err)
		if LeadingZeros(id) >= zeros {
			return block
		}
	}
	t.Fatalf("no block found with %d leading zeros", zeros)
	return nil
}

func TestProofOfWork(t *testing.T) {
	pow := ProofOfWork{Difficulty: 1, Addresser: SHA3Addresser{}}
	block := mine(t, 1)
	assert.True(t, pow.IsValid(block))

	hard := ProofOfWork{Difficulty: 64, Addresser: SHA3Addresser{}}
	assert.False(t, hard.IsValid(block))

	assert.True(t, ProofOfWork{Difficulty: 0, Addresser: SHA3Addresser{}}.IsValid(&models.Block{Branch: "main"}))
}

func TestWorkWeight(t *testing.T) {
	block := mine(t, 2)
	id, err := SHA3Addresser{}.IDOf(block)
	require.NoError(t, err)

	weight := WorkWeight{Addresser: SHA3Addresser{}}.Weight(block)
	assert.Equal(t, int64(1)<<(4*LeadingZeros(id)), weight)
	assert.GreaterOrEqual(t, weight, int64(256))
}

func TestLeadingZeros(t *testing.T) {
	assert.Equal(t, 0, LeadingZeros("abc"))
	assert.Equal(t, 3, LeadingZeros("000abc"))
	assert.Equal(t, 4, LeadingZeros("0000"))
	assert.Equal(t, int64(1), UnitWeight{}.Weight(nil))
	assert.True(t, AcceptAll{}.IsValid(nil))
}
