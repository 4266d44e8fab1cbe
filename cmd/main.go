package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"dag-node/config"
	"dag-node/consensus"
	"dag-node/dag"
	"dag-node/handlers"
	"dag-node/logger"
	"dag-node/repository"
	"dag-node/routers"
)

func main() {
	configPath := pflag.String("config", config.DefaultPath, "path of the YAML configuration file")
	pflag.Int("port", 0, "HTTP port, overrides server.port")
	pflag.Parse()
	if err := viper.BindPFlag("server.port", pflag.Lookup("port")); err != nil {
		fmt.Println("Flag error:", err)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(viper.GetViper(), *configPath)
	if err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level, cfg.Log.MaxSizeKB, cfg.Log.MaxRolls); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Logger.Info("Starting DAG node...",
		zap.String("store", cfg.Store.Backend), zap.Int("difficulty", cfg.Consensus.Difficulty))

	// Open the block store
	store, err := repository.Open(cfg.Store.Backend, cfg.Store.Path, cfg.Store.CacheSize)
	if err != nil {
		logger.Logger.Fatal("Failed to open block store", zap.Error(err))
	}
	defer store.Close()

	// Initialize the node with its oracles
	addresser := consensus.SHA3Addresser{}
	validator := consensus.ProofOfWork{Difficulty: cfg.Consensus.Difficulty, Addresser: addresser}
	var weigher consensus.Weigher = consensus.UnitWeight{}
	if cfg.Consensus.Weight == config.WeightWork {
		weigher = consensus.WorkWeight{Addresser: addresser}
	}
	node := dag.NewNode(store, addresser, validator, weigher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flushed := make(chan struct{})
	go func() {
		node.Run(ctx)
		close(flushed)
	}()

	// Initialize HTTP handlers
	h := handlers.NewHandler(node, cfg.Events.Buffer)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	// HTTP Server. Requests derive from streamCtx so event streams end on shutdown.
	streamCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port),
		zap.Int("blocks", node.BlockCount()), zap.Int("resolved", node.BlockMetadataCount()))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	stopStreams()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Warn("Forcing server close", zap.Error(err))
		srv.Close()
	}
	cancel()
	<-flushed
}
