package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
)

// maxFrameBytes bounds a single JSON-RPC line. A full knowledge-base entry
// with long free-text fields fits comfortably; anything larger is a protocol
// violation.
const maxFrameBytes = 4 * 1024 * 1024

// StdioTransport serves a Server over line-delimited JSON-RPC 2.0: one
// request per line on in, one response per line on out. This is the framing
// MCP hosts (Claude Desktop, Claude Code) speak when they spawn the server
// as a subprocess.
//
// Nothing but response frames may ever reach out. The transport therefore
// carries its own stderr logger instead of sharing the process default.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewStdioTransport wires a Server to the given streams. Pass os.Stdin and
// os.Stdout for real use; tests substitute buffers.
func NewStdioTransport(srv *Server, in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		server: srv,
		in:     in,
		out:    out,
		logger: log.New(os.Stderr, "selfmap-mcp: ", log.LstdFlags),
	}
}

// Serve reads and answers requests until in is exhausted or ctx is
// cancelled. A clean EOF returns nil; requests are handled one at a time in
// arrival order, which is all the MCP protocol requires of a transport.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, maxFrameBytes), maxFrameBytes)

	for {
		if err := ctx.Err(); err != nil {
			t.logger.Println("shutting down: context cancelled")
			return err
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				t.logger.Printf("request stream error: %v", err)
				return fmt.Errorf("read request: %w", err)
			}
			t.logger.Println("shutting down: input closed")
			return nil
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp, err := t.server.HandleRequest(ctx, line)
		if err != nil {
			// The server encodes almost every failure into a JSON-RPC error
			// frame itself. If it could not, fabricate one: the host is
			// waiting on a response line and must never be left hanging.
			t.logger.Printf("handler error: %v", err)
			resp = fallbackErrorFrame(line, err)
		}

		if _, err := fmt.Fprintf(t.out, "%s\n", resp); err != nil {
			t.logger.Printf("write error: %v", err)
			return fmt.Errorf("write response: %w", err)
		}

		// A shutdown signal during a slow handler should not start another
		// read.
		if err := ctx.Err(); err != nil {
			t.logger.Println("shutting down: context cancelled")
			return err
		}
	}
}

// fallbackErrorFrame builds a JSON-RPC error response for a request the
// server failed on without producing a frame. The request ID is salvaged
// from the raw bytes when possible so the host can correlate it.
func fallbackErrorFrame(rawRequest []byte, handlerErr error) []byte {
	var probe struct {
		ID interface{} `json:"id"`
	}
	_ = json.Unmarshal(rawRequest, &probe)

	data, err := json.Marshal(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      probe.ID,
		Error: &JSONRPCError{
			Code:    ErrCodeInternalError,
			Message: handlerErr.Error(),
		},
	})
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
