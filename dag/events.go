package dag

import (
	"context"

	"dag-node/logger"
	"dag-node/metrics"
	"dag-node/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handler receives node events. It runs on the flushing goroutine and must not
// subscribe new listeners itself.
type Handler func(event models.Event)

// ListenerID identifies a subscription for RemoveEventListener.
type ListenerID string

type listener struct {
	id     ListenerID
	kind   models.EventKind
	handle Handler
}

// AddEventListener subscribes handle to one kind of event. Before any incremental event,
// the listener gets the current state: a head event per branch, or a block event per stored block.
func (n *Node) AddEventListener(kind models.EventKind, handle Handler) (ListenerID, error) {
	if kind != models.EventBlock && kind != models.EventHead {
		return "", errors.Wrapf(ErrUnknownEventKind, "%q", kind)
	}

	n.dispatchMux.Lock()
	defer n.dispatchMux.Unlock()

	replay, err := n.snapshot(kind)
	if err != nil {
		return "", err
	}

	l := listener{id: ListenerID(uuid.NewString()), kind: kind, handle: handle}
	n.listenersMux.Lock()
	n.listeners = append(n.listeners, l)
	n.listenersMux.Unlock()

	for _, event := range replay {
		handle(event)
	}
	return l.id, nil
}

// snapshot builds the replay events of kind from the store
func (n *Node) snapshot(kind models.EventKind) ([]models.Event, error) {
	n.mux.Lock()
	defer n.mux.Unlock()

	var events []models.Event
	switch kind {
	case models.EventHead:
		branches, err := n.store.Branches()
		if err != nil {
			return nil, err
		}
		for _, branch := range branches {
			head, ok, err := n.store.GetBranchHead(branch)
			if err != nil {
				return nil, err
			}
			if ok {
				events = append(events, models.HeadChanged(branch, head))
			}
		}
	case models.EventBlock:
		err := n.store.BlockIDs(func(id string, _ *models.Block) error {
			events = append(events, models.BlockProcessed(id))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

// RemoveEventListener drops a subscription. Unknown ids are ignored.
func (n *Node) RemoveEventListener(id ListenerID) {
	n.listenersMux.Lock()
	defer n.listenersMux.Unlock()

	kept := n.listeners[:0]
	for _, l := range n.listeners {
		if l.id != id {
			kept = append(kept, l)
		}
	}
	n.listeners = kept
}

// Flush delivers the events gathered since the previous flush: one block event per
// resolved block, in resolution order, then one head event per branch whose head
// moved, carrying the head at flush time.
func (n *Node) Flush() {
	n.dispatchMux.Lock()
	defer n.dispatchMux.Unlock()

	events := n.drainPending()
	if len(events) == 0 {
		return
	}

	n.listenersMux.Lock()
	listeners := append([]listener{}, n.listeners...)
	n.listenersMux.Unlock()

	for _, event := range events {
		for _, l := range listeners {
			if l.kind == event.Kind {
				l.handle(event)
			}
		}
		metrics.EventsEmitted.WithLabelValues(string(event.Kind)).Inc()
	}
}

func (n *Node) drainPending() []models.Event {
	n.mux.Lock()
	defer n.mux.Unlock()

	events := make([]models.Event, 0, len(n.pendingBlocks)+len(n.pendingHeads))
	for _, id := range n.pendingBlocks {
		events = append(events, models.BlockProcessed(id))
	}
	for _, branch := range n.pendingHeads {
		head, ok, err := n.store.GetBranchHead(branch)
		if err != nil || !ok {
			logger.Logger.Error("Cannot read head of branch", zap.String("branch", branch), zap.Error(err))
			continue
		}
		fields := []zap.Field{zap.String("branch", branch), zap.String("head_id", head)}
		if metadata, err := n.store.GetBlockMetadata(head); err == nil {
			fields = append(fields, zap.Int64("depth", metadata.BlockCount))
		}
		logger.Logger.Info("New head of branch", fields...)
		events = append(events, models.HeadChanged(branch, head))
	}

	n.pendingBlocks = nil
	n.pendingHeads = nil
	n.headPending = make(map[string]bool)
	return events
}

// signal tells Run that events are waiting. Called with mux held.
func (n *Node) signal() {
	if len(n.pendingBlocks) == 0 && len(n.pendingHeads) == 0 {
		return
	}
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Run flushes pending events whenever a registration produced some, until ctx is done.
// Registrations landing before the flush coalesce into the same batch.
func (n *Node) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			n.Flush()
			return
		case <-n.wake:
			n.Flush()
		}
	}
}
