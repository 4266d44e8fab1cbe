package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkFirstParent(t *testing.T) {
	node, _ := newTestNode(t)
	gID, g := newBlock(t, "g")
	aID, a := newBlock(t, "a", gID)
	bID, b := newBlock(t, "b", aID)
	xID, x := newBlock(t, "x", gID)
	mID, m := newBlock(t, "m", bID, xID)
	register(t, node, gID, g)
	register(t, node, aID, a)
	register(t, node, bID, b)
	register(t, node, xID, x)
	register(t, node, mID, m)

	ids, err := node.ChainBlockIDs(mID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{mID, bID, aID, gID}, ids)

	ids, err = node.ChainBlockIDs(mID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{mID, bID}, ids)

	ids, err = node.ChainBlockIDs(mID, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	metadata, err := node.ChainBlockMetadata(bID, 10)
	require.NoError(t, err)
	require.Len(t, metadata, 3)
	assert.Equal(t, int64(3), metadata[0].BlockCount)
	assert.Equal(t, gID, metadata[2].BlockID)

	data, err := node.ChainBlockData(aID, 10)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, []byte("a"), data[0].Data)
	assert.Equal(t, []byte("g"), data[1].Data)
}

func TestWalkerStopsAtUnknownBlocks(t *testing.T) {
	node, _ := newTestNode(t)
	gID, _ := newBlock(t, "g")
	aID, a := newBlock(t, "a", gID)
	register(t, node, aID, a)

	w := node.WalkFirstParent(aID, 10)
	require.True(t, w.Next())
	assert.Equal(t, aID, w.ID())
	assert.Nil(t, w.Metadata())
	assert.Equal(t, []string{gID}, w.Block().Parents)
	assert.False(t, w.Next())
	assert.False(t, w.Next())
	assert.NoError(t, w.Err())

	metadata, err := node.ChainBlockMetadata(aID, 10)
	require.NoError(t, err)
	assert.Empty(t, metadata)

	ids, err := node.ChainBlockIDs("unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBranchHeadLog(t *testing.T) {
	node, _ := newTestNode(t)
	gID, g := newBlock(t, "g")
	aID, a := newBlock(t, "a", gID)
	bID, b := newBlock(t, "b", aID)
	register(t, node, gID, g)
	register(t, node, aID, a)
	register(t, node, bID, b)

	log, err := node.BranchHeadLog("main", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{bID, aID}, log)

	log, err = node.BranchHeadLog("main", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{bID, aID, gID}, log)

	log, err = node.BranchHeadLog("main", 0)
	require.NoError(t, err)
	assert.Empty(t, log)

	log, err = node.BranchHeadLog("unknown", 2)
	require.NoError(t, err)
	assert.Nil(t, log)
}
