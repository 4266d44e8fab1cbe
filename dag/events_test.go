package dag

import (
	"context"
	"sync"
	"testing"
	"time"

	"dag-node/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) handle(event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event{}, r.events...)
}

func TestReplayOnSubscribe(t *testing.T) {
	node, _ := newTestNode(t)
	gID, g := newBlock(t, "g")
	aID, a := newBlock(t, "a", gID)
	bID, b := newBlock(t, "b", aID)
	for _, e := range []struct {
		id    string
		block *models.Block
	}{{gID, g}, {aID, a}, {bID, b}} {
		register(t, node, e.id, e.block)
	}
	node.Flush()

	blocks, heads := &recorder{}, &recorder{}
	_, err := node.AddEventListener(models.EventBlock, blocks.handle)
	require.NoError(t, err)
	_, err = node.AddEventListener(models.EventHead, heads.handle)
	require.NoError(t, err)

	replayed := map[string]bool{}
	for _, event := range blocks.all() {
		assert.Equal(t, models.EventBlock, event.Kind)
		replayed[event.BlockID] = true
	}
	assert.Equal(t, map[string]bool{gID: true, aID: true, bID: true}, replayed)
	assert.Equal(t, []models.Event{models.HeadChanged("main", bID)}, heads.all())

	cID, c := newBlock(t, "c", bID)
	register(t, node, cID, c)
	node.Flush()

	blockEvents := blocks.all()
	require.Len(t, blockEvents, 4)
	assert.Equal(t, models.BlockProcessed(cID), blockEvents[3])
	assert.Equal(t, []models.Event{models.HeadChanged("main", bID), models.HeadChanged("main", cID)}, heads.all())
}

func TestReplayIncludesPendingBlocks(t *testing.T) {
	node, _ := newTestNode(t)
	gID, _ := newBlock(t, "g")
	aID, a := newBlock(t, "a", gID)
	register(t, node, aID, a)

	blocks := &recorder{}
	_, err := node.AddEventListener(models.EventBlock, blocks.handle)
	require.NoError(t, err)
	assert.Equal(t, []models.Event{models.BlockProcessed(aID)}, blocks.all())
}

func TestHeadChangesCoalesce(t *testing.T) {
	node, _ := newTestNode(t)
	blocks, heads := &recorder{}, &recorder{}
	_, err := node.AddEventListener(models.EventBlock, blocks.handle)
	require.NoError(t, err)
	_, err = node.AddEventListener(models.EventHead, heads.handle)
	require.NoError(t, err)

	const length = 10
	ids := make([]string, length)
	chain := make([]*models.Block, length)
	ids[0], chain[0] = newBlock(t, "0")
	for i := 1; i < length; i++ {
		ids[i], chain[i] = newBlock(t, string(rune('a'+i)), ids[i-1])
	}
	for i := length - 1; i >= 0; i-- {
		register(t, node, ids[i], chain[i])
	}

	log, err := node.BranchHeadLog("main", 100)
	require.NoError(t, err)
	assert.Len(t, log, length)

	node.Flush()
	assert.Equal(t, []models.Event{models.HeadChanged("main", ids[length-1])}, heads.all())

	blockEvents := blocks.all()
	require.Len(t, blockEvents, length)
	for i, event := range blockEvents {
		assert.Equal(t, models.BlockProcessed(ids[i]), event)
	}

	// nothing pending, nothing emitted
	node.Flush()
	assert.Len(t, heads.all(), 1)
}

func TestRemoveEventListener(t *testing.T) {
	node, _ := newTestNode(t)
	kept, removed := &recorder{}, &recorder{}
	_, err := node.AddEventListener(models.EventBlock, kept.handle)
	require.NoError(t, err)
	id, err := node.AddEventListener(models.EventBlock, removed.handle)
	require.NoError(t, err)

	node.RemoveEventListener(id)
	node.RemoveEventListener("unknown")

	gID, g := newBlock(t, "g")
	register(t, node, gID, g)
	node.Flush()

	assert.Len(t, kept.all(), 1)
	assert.Empty(t, removed.all())
}

func TestUnknownEventKind(t *testing.T) {
	node, _ := newTestNode(t)
	_, err := node.AddEventListener("reorg", func(models.Event) {})
	assert.True(t, errors.Is(err, ErrUnknownEventKind))
}

func TestRunFlushesAfterRegistration(t *testing.T) {
	node, _ := newTestNode(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		node.Run(ctx)
		close(done)
	}()

	heads := make(chan models.Event, 4)
	_, err := node.AddEventListener(models.EventHead, func(event models.Event) { heads <- event })
	require.NoError(t, err)

	gID, g := newBlock(t, "g")
	register(t, node, gID, g)

	select {
	case event := <-heads:
		assert.Equal(t, models.HeadChanged("main", gID), event)
	case <-time.After(5 * time.Second):
		t.Fatal("head event not delivered")
	}

	cancel()
	<-done
}
