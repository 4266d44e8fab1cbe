package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dag-node/dag"
	"dag-node/logger"
	"dag-node/models"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxDepth bounds the chain and head log queries a peer can ask for
const maxDepth = 10000

// Handler contains the HTTP handlers for the node API endpoints
type Handler struct {
	Node *dag.Node
	// EventBuffer is how many events a streaming client may lag behind before it is dropped
	EventBuffer int
}

// NewHandler creates and returns a new Handler instance
func NewHandler(node *dag.Node, eventBuffer int) *Handler {
	return &Handler{Node: node, EventBuffer: eventBuffer}
}

// RegisterBlockRequest is the body of POST /blocks
type RegisterBlockRequest struct {
	ID    string        `json:"id"`
	Block *models.Block `json:"block"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Warn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// depthParam reads the depth query parameter, 1 when absent
func depthParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("depth")
	if raw == "" {
		return 1, nil
	}
	depth, err := strconv.Atoi(raw)
	if err != nil || depth < 0 {
		return 0, errors.Errorf("invalid depth %q", raw)
	}
	if depth > maxDepth {
		return 0, errors.Errorf("depth %d above limit %d", depth, maxDepth)
	}
	return depth, nil
}

// RegisterBlock handles POST requests carrying a block received from a peer or a miner
func (h *Handler) RegisterBlock(w http.ResponseWriter, r *http.Request) {
	var req RegisterBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Logger.Error("Failed to decode block", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	metadata, err := h.Node.RegisterBlock(req.ID, req.Block)
	switch {
	case errors.Is(err, dag.ErrMalformedBlock):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, dag.ErrIdentityMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		logger.Logger.Error("Failed to register block", zap.String("block_id", req.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register block")
		return
	}

	if metadata == nil {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"message": "Block waiting for its parents",
			"id":      req.ID,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Block registered",
		"metadata": metadata,
	})
}

// GetBlock reports whether a block is known and whether its metadata is resolved
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	known, err := h.Node.KnowsBlock(id)
	if err != nil {
		logger.Logger.Error("Failed to look up block", zap.String("block_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to look up block")
		return
	}
	validated, err := h.Node.KnowsBlockAsValidated(id)
	if err != nil {
		logger.Logger.Error("Failed to look up block metadata", zap.String("block_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to look up block")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        id,
		"known":     known,
		"validated": validated,
	})
}

// GetBranches lists the branches that have a head
func (h *Handler) GetBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Node.Branches()
	if err != nil {
		logger.Logger.Error("Failed to list branches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if branches == nil {
		branches = []string{}
	}
	writeJSON(w, http.StatusOK, branches)
}

// GetBranchHead returns the current head of a branch
func (h *Handler) GetBranchHead(w http.ResponseWriter, r *http.Request) {
	branch := mux.Vars(r)["branch"]

	head, ok, err := h.Node.BranchHead(branch)
	if err != nil {
		logger.Logger.Error("Failed to read branch head", zap.String("branch", branch), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "branch has no head")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"branch": branch, "head": head})
}

// GetBranchHeadLog returns the last heads of a branch, most recent first
func (h *Handler) GetBranchHeadLog(w http.ResponseWriter, r *http.Request) {
	branch := mux.Vars(r)["branch"]
	depth, err := depthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log, err := h.Node.BranchHeadLog(branch, depth)
	if err != nil {
		logger.Logger.Error("Failed to read head log", zap.String("branch", branch), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if log == nil {
		writeError(w, http.StatusNotFound, "unknown branch")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// chainQuery runs one of the first parent chain queries and writes its result
func (h *Handler) chainQuery(w http.ResponseWriter, r *http.Request, query func(startID string, depth int) (interface{}, error)) {
	startID := mux.Vars(r)["id"]
	depth, err := depthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := query(startID, depth)
	if err != nil {
		logger.Logger.Error("Failed to walk chain", zap.String("block_id", startID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetChainBlockIDs handles GET requests for the ids along the first parent chain
func (h *Handler) GetChainBlockIDs(w http.ResponseWriter, r *http.Request) {
	h.chainQuery(w, r, func(startID string, depth int) (interface{}, error) {
		ids, err := h.Node.ChainBlockIDs(startID, depth)
		if ids == nil {
			ids = []string{}
		}
		return ids, err
	})
}

// GetChainBlockMetadata handles GET requests for the metadata along the first parent chain
func (h *Handler) GetChainBlockMetadata(w http.ResponseWriter, r *http.Request) {
	h.chainQuery(w, r, func(startID string, depth int) (interface{}, error) {
		list, err := h.Node.ChainBlockMetadata(startID, depth)
		if list == nil {
			list = []*models.BlockMetadata{}
		}
		return list, err
	})
}

// GetChainBlockData handles GET requests for the raw blocks along the first parent chain
func (h *Handler) GetChainBlockData(w http.ResponseWriter, r *http.Request) {
	h.chainQuery(w, r, func(startID string, depth int) (interface{}, error) {
		list, err := h.Node.ChainBlockData(startID, depth)
		if list == nil {
			list = []*models.Block{}
		}
		return list, err
	})
}

// Ping answers liveness probes
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello"})
}
