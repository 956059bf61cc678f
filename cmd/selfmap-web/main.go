// cmd/selfmap-web serves the MCP tool surface over HTTP: the same JSON-RPC
// 2.0 payloads as the stdio server, carried in POST /mcp request bodies.
// Remote agents and hosted integrations that cannot spawn a local process use
// this endpoint; production deployments require a bearer token.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/selfmap/selfmap/internal/config"
	"github.com/selfmap/selfmap/internal/server"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/internal/storage/postgres"
	"github.com/selfmap/selfmap/internal/storage/sqlite"
)

func openStore(cfg *config.Config) (storage.Store, io.Closer, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.NewStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, store, nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory %q: %w", cfg.Storage.DataPath, err)
		}
		dbPath := filepath.Join(cfg.Storage.DataPath, "selfmap.db")
		store, err := sqlite.NewStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database at %q: %w", dbPath, err)
		}
		return store, store, nil
	}
}

func main() {
	log.SetPrefix("selfmap-web: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Security.SecurityMode == "development" {
		log.Println("running in development mode: /mcp is unauthenticated")
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, done, err := server.Start(ctx, cfg, store)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	log.Printf("listening on http://%s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("received shutdown signal")
	cancel()
	<-done
	log.Println("server stopped")
}
