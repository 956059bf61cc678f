package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/selfmap/selfmap/internal/api/mcp"
)

// maxRequestBytes caps the accepted request body. It matches the line limit of
// the stdio transport so both surfaces accept the same payloads.
const maxRequestBytes = 4 * 1024 * 1024

// MCPHandler serves JSON-RPC 2.0 requests over HTTP. It carries the exact same
// payloads as the stdio transport: one request per POST, one response per body.
type MCPHandler struct {
	server *mcp.Server
	logger *log.Logger
}

// NewMCPHandler creates an HTTP handler backed by the given MCP server.
func NewMCPHandler(server *mcp.Server, logger *log.Logger) *MCPHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &MCPHandler{server: server, logger: logger}
}

// HandleMCP handles POST /mcp.
func (h *MCPHandler) HandleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		http.Error(w, `{"error":"failed to read request body"}`, http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestBytes {
		http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
		return
	}

	resp, err := h.server.HandleRequest(r.Context(), body)
	if err != nil {
		// HandleRequest reports transport-level failures here; the JSON-RPC
		// error envelope is already inside resp for everything else.
		h.logger.Printf("selfmap-web: handler error: %v", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp); err != nil {
		h.logger.Printf("selfmap-web: write response: %v", err)
	}
}

// HandleHealth handles GET /health. No auth required; monitoring probes use it.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
}
