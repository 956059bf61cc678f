// cmd/selfmap-mcp is the entry point for the selfmap MCP (Model Context
// Protocol) server. It exposes the personal knowledge base to AI agents as a
// set of JSON-RPC 2.0 tools served over stdin/stdout.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the configured storage backend (SQLite by default).
//  3. Create the MCP server on top of the store.
//  4. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
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

	"github.com/selfmap/selfmap/internal/api/mcp"
	"github.com/selfmap/selfmap/internal/config"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/internal/storage/postgres"
	"github.com/selfmap/selfmap/internal/storage/sqlite"
)

// openStore opens the storage backend named by the configuration.
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
	// Redirect the default logger to stderr so that any incidental log calls
	// (e.g. from imported packages) never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("selfmap-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer.Close()

	// Set up a root context that is cancelled on SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	srv := mcp.NewServer(store, mcp.WithConfig(cfg))

	// Wrap the server in a StdioTransport that reads line-delimited JSON-RPC
	// from stdin and writes responses to stdout. All logging inside the
	// transport is directed to stderr.
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Println("ready — serving JSON-RPC 2.0 on stdin/stdout")

	if err := transport.Serve(ctx); err != nil {
		// A non-nil error here is normal (context cancellation) or indicates a
		// fatal stdin/stdout problem. Either way it is informational only.
		log.Printf("transport stopped: %v", err)
	}
}
