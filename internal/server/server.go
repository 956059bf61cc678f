// Package server provides HTTP server initialization and lifecycle management
// for the selfmap MCP endpoint.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/selfmap/selfmap/internal/api/mcp"
	"github.com/selfmap/selfmap/internal/config"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Handler builds the full HTTP handler chain: health check, the authenticated
// /mcp endpoint, rate limiting, and security headers. Split out from Start so
// tests can exercise the chain with httptest.
func Handler(cfg *config.Config, store storage.Store) http.Handler {
	mcpServer := mcp.NewServer(store, mcp.WithConfig(cfg))
	mcpHandler := handlers.NewMCPHandler(mcpServer, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)

	// The MCP endpoint requires the bearer token in production mode.
	protected := http.NewServeMux()
	protected.HandleFunc("/mcp", mcpHandler.HandleMCP)
	mux.Handle("/mcp", handlers.RequireAuth(protected, cfg))

	rateLimiter := handlers.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateBurst)
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	return securityHeadersMiddleware(handler)
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with
// port 0) and a channel that closes once the graceful shutdown triggered by
// cancelling ctx has finished draining in-flight requests. Callers must wait
// on it before exiting.
func Start(ctx context.Context, cfg *config.Config, store storage.Store) (string, <-chan struct{}, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      Handler(cfg, store),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	return actualAddr, done, nil
}
