package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cozy-triage/backend/internal/graph"
	"cozy-triage/backend/pkg/config"
	"cozy-triage/backend/pkg/logger"
)

// Deploys the Memgraph schema: uniqueness constraints on every node label's
// id and the task embedding vector index. Safe to run repeatedly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	store, err := graph.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to open graph store", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer store.Close(ctx)

	if err := store.Ping(ctx); err != nil {
		log.Fatal("Failed to reach Memgraph", zap.Error(err))
	}

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("Schema setup failed", zap.Error(err))
	}

	log.Info("Schema setup complete")
}
