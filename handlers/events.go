package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dag-node/logger"
	"dag-node/models"

	"go.uber.org/zap"
)

const keepaliveInterval = 30 * time.Second

// Events streams node events as Server-Sent Events.
// GET /events?kind=head|block, head by default. The stream starts with the replay of the current state.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	kind := models.EventKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.EventHead
	}
	if kind != models.EventHead && kind != models.EventBlock {
		writeError(w, http.StatusBadRequest, "kind must be head or block")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The replay runs inside AddEventListener on this goroutine and goes to an unbounded backlog.
	// Incremental events run on the node's flushing goroutine, which must never block, so they
	// go through a bounded channel and a lagging client is dropped.
	events := make(chan models.Event, h.EventBuffer)
	overflow := make(chan struct{})
	var (
		once      sync.Once
		mu        sync.Mutex
		replaying = true
		backlog   []models.Event
	)
	id, err := h.Node.AddEventListener(kind, func(event models.Event) {
		mu.Lock()
		if replaying {
			backlog = append(backlog, event)
			mu.Unlock()
			return
		}
		mu.Unlock()
		select {
		case events <- event:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	if err != nil {
		logger.Logger.Error("Failed to subscribe to events", zap.Error(err))
		return
	}
	defer h.Node.RemoveEventListener(id)

	// events flushed between the replay and this point are appended to the backlog, in order
	mu.Lock()
	replaying = false
	replay := backlog
	backlog = nil
	mu.Unlock()
	for _, event := range replay {
		if err := writeSSE(w, event); err != nil {
			logger.Logger.Debug("SSE write failed", zap.Error(err))
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-overflow:
			logger.Logger.Warn("Dropping slow event subscriber", zap.String("remote", r.RemoteAddr))
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event := <-events:
			if err := writeSSE(w, event); err != nil {
				logger.Logger.Debug("SSE write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
	return err
}
