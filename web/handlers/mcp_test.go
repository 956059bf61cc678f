package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfmap/selfmap/internal/api/mcp"
	"github.com/selfmap/selfmap/internal/storage/sqlite"
	"github.com/selfmap/selfmap/web/handlers"
)

func newMCPHandler(t *testing.T) *handlers.MCPHandler {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return handlers.NewMCPHandler(mcp.NewServer(store), nil)
}

func TestHandleMCP_ToolsList(t *testing.T) {
	h := newMCPHandler(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMCP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2.0", resp["jsonrpc"])
	assert.NotNil(t, resp["result"])
	assert.Nil(t, resp["error"])
}

func TestHandleMCP_ParseErrorIsStillHTTP200(t *testing.T) {
	h := newMCPHandler(t)

	req := httptest.NewRequest("POST", "/mcp", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.HandleMCP(w, req)

	// JSON-RPC errors travel inside the envelope, not as HTTP status codes.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
	assert.Contains(t, w.Body.String(), "-32700")
}

func TestHandleMCP_RejectsGet(t *testing.T) {
	h := newMCPHandler(t)

	req := httptest.NewRequest("GET", "/mcp", nil)
	w := httptest.NewRecorder()

	h.HandleMCP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleMCP_RejectsOversizedBody(t *testing.T) {
	h := newMCPHandler(t)

	huge := strings.Repeat("a", 4*1024*1024+1)
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(huge))
	w := httptest.NewRecorder()

	h.HandleMCP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
