package routers

import (
	"dag-node/handlers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all the HTTP routes of the node
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Submits a block under its advertised id
	r.HandleFunc("/blocks", h.RegisterBlock).Methods("POST")

	// Whether a block is stored and whether its metadata is resolved
	r.HandleFunc("/blocks/{id}", h.GetBlock).Methods("GET")

	r.HandleFunc("/branches", h.GetBranches).Methods("GET")
	r.HandleFunc("/branches/{branch}/head", h.GetBranchHead).Methods("GET")
	r.HandleFunc("/branches/{branch}/head-log", h.GetBranchHeadLog).Methods("GET")

	// Walks back from a block along first parents
	r.HandleFunc("/chain/{id}/ids", h.GetChainBlockIDs).Methods("GET")
	r.HandleFunc("/chain/{id}/metadata", h.GetChainBlockMetadata).Methods("GET")
	r.HandleFunc("/chain/{id}/data", h.GetChainBlockData).Methods("GET")

	// Server-Sent Events stream of head and block notifications
	r.HandleFunc("/events", h.Events).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/ping", h.Ping).Methods("GET")
}
