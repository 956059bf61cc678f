// Package mcp implements the Model Context Protocol (MCP) server for selfmap.
// It provides JSON-RPC 2.0 based tools for generating persona-weighted context
// documents and managing the underlying profile, persona, and entry data.
package mcp

import (
	"encoding/json"
	"strings"

	"github.com/selfmap/selfmap/pkg/types"
)

// GetContextArgs contains arguments for the get_context tool.
type GetContextArgs struct {
	Persona       string `json:"persona,omitempty"`         // Persona name (preset or custom); empty means "default"
	Focus         string `json:"focus,omitempty"`           // Focus keyword; matching entries get a 1.5x score boost
	MaxTokensHint int    `json:"max_tokens_hint,omitempty"` // Soft output size target (default 4000)
	ProfileID     string `json:"profile_id,omitempty"`      // Profile to generate for; defaults to the first profile
}

// ListPersonasResult contains the result of the list_available_personas tool.
type ListPersonasResult struct {
	Personas []string `json:"personas"` // Preset names first, then custom personas sorted by name
}

// SavePersonaArgs contains arguments for the save_persona tool.
// Omitted numeric fields take the documented defaults at resolution time.
type SavePersonaArgs struct {
	Name              string             `json:"name"` // Persona name (required); overwrites an existing custom persona of the same name
	Description       string             `json:"description,omitempty"`
	SystemInstruction string             `json:"system_instruction,omitempty"`
	Tone              string             `json:"tone,omitempty"`
	Language          string             `json:"language,omitempty"`
	EntityWeights     map[string]float64 `json:"entity_weights,omitempty"`
	IncludePrivate    bool               `json:"include_private,omitempty"`
	ExcludeEntities   []string           `json:"exclude_entities,omitempty"`
	MinImportance     int                `json:"min_importance,omitempty"`
	MinConfidence     int                `json:"min_confidence,omitempty"`
	TimeDecayDays     float64            `json:"time_decay_days,omitempty"`
	MaxEntriesPerType int                `json:"max_entries_per_type,omitempty"`
	ProfileID         string             `json:"profile_id,omitempty"`
}

// SavePersonaResult contains the result of saving a custom persona.
type SavePersonaResult struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// DeletePersonaArgs contains arguments for the delete_persona tool.
type DeletePersonaArgs struct {
	Name      string `json:"name"` // Custom persona name (required); presets cannot be deleted
	ProfileID string `json:"profile_id,omitempty"`
}

// DeletePersonaResult contains the result of deleting a custom persona.
type DeletePersonaResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// CreateProfileArgs contains arguments for the create_profile tool.
type CreateProfileArgs struct {
	Profile types.Profile `json:"profile"` // Profile fields; name is required
}

// CreateProfileResult contains the result of creating a profile.
type CreateProfileResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// GetProfileArgs contains arguments for the get_profile tool.
type GetProfileArgs struct {
	ProfileID string `json:"profile_id,omitempty"` // Defaults to the first profile
}

// GetProfileResult contains the result of fetching a profile.
type GetProfileResult struct {
	Profile *types.Profile `json:"profile"`
}

// UpdateProfileArgs contains arguments for the update_profile tool.
type UpdateProfileArgs struct {
	Profile types.Profile `json:"profile"` // Full replacement; the ID selects the profile (defaults to the first profile)
}

// UpdateProfileResult contains the result of updating a profile.
type UpdateProfileResult struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

// UpsertEntryArgs contains arguments for the upsert_entry tool.
type UpsertEntryArgs struct {
	// Type is the entity type, e.g. "career_entries" or "skills" (required).
	Type string `json:"type"`
	// Entry holds the typed entry fields as a JSON object. A present "id"
	// updates that entry; an absent one creates a new entry.
	Entry json.RawMessage `json:"entry"`
	// ProfileID owns the entry; defaults to the first profile.
	ProfileID string `json:"profile_id,omitempty"`

	// Tags may arrive as a JSON array or (from some MCP clients) as a
	// JSON-encoded string. Non-empty tags replace the entry's tags.
	Tags []string `json:"tags,omitempty"`
}

// UnmarshalJSON handles the case where some MCP clients send array fields
// like "tags" as a JSON-encoded string ("[\"a\",\"b\"]") rather than a proper
// JSON array. Both forms are accepted.
func (a *UpsertEntryArgs) UnmarshalJSON(data []byte) error {
	type Alias UpsertEntryArgs
	aux := &struct {
		Tags json.RawMessage `json:"tags,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if aux.Tags == nil {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(aux.Tags, &tags); err == nil {
		a.Tags = tags
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.Tags, &s); err != nil {
		return nil // ignore unrecognised tag formats rather than failing
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		_ = json.Unmarshal([]byte(s), &tags)
		a.Tags = tags
	} else if s != "" {
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				a.Tags = append(a.Tags, t)
			}
		}
	}
	return nil
}

// UpsertEntryResult contains the result of upserting an entry.
type UpsertEntryResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created bool   `json:"created"` // false when an existing entry was updated
	Message string `json:"message"`
}

// GetEntryArgs contains arguments for the get_entry tool.
type GetEntryArgs struct {
	ID string `json:"id"` // Entry ID (required)
}

// GetEntryResult contains the result of fetching an entry.
type GetEntryResult struct {
	Type  string          `json:"type"`
	Entry json.RawMessage `json:"entry"`
}

// DeleteEntryArgs contains arguments for the delete_entry tool.
type DeleteEntryArgs struct {
	ID string `json:"id"` // Entry ID (required)
}

// DeleteEntryResult contains the result of deleting an entry.
type DeleteEntryResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ListEntriesArgs contains arguments for the list_entries tool.
type ListEntriesArgs struct {
	Type           string `json:"type"` // Entity type (required)
	ProfileID      string `json:"profile_id,omitempty"`
	MinImportance  int    `json:"min_importance,omitempty"`
	MinConfidence  int    `json:"min_confidence,omitempty"`
	IncludePrivate bool   `json:"include_private,omitempty"`
	Limit          int    `json:"limit,omitempty"` // Max results (default 20, max 100)
}

// ListEntriesResult contains the result of listing entries of one type.
type ListEntriesResult struct {
	Type    string            `json:"type"`
	Entries []json.RawMessage `json:"entries"`
	Total   int               `json:"total"` // Matching rows before the limit
}

// SearchEntriesArgs contains arguments for the search_entries tool.
type SearchEntriesArgs struct {
	Query          string   `json:"query"`                     // Search keyword (required)
	Types          []string `json:"types,omitempty"`           // Entity types to search; empty means all
	Limit          int      `json:"limit,omitempty"`           // Max hits per type (default 10, max 50)
	IncludePrivate bool     `json:"include_private,omitempty"` // Search private entries too
	ProfileID      string   `json:"profile_id,omitempty"`
}

// SearchEntriesResult contains cross-entity search hits grouped by type.
// Types with no hits are omitted from Results.
type SearchEntriesResult struct {
	Query         string                       `json:"query"`
	Results       map[string][]json.RawMessage `json:"results"`
	TypesSearched int                          `json:"types_searched"`
	TotalHits     int                          `json:"total_hits"`
}

// GetStatsArgs contains arguments for the get_stats tool.
type GetStatsArgs struct {
	ProfileID string `json:"profile_id,omitempty"`
}

// GetStatsResult contains per-type entry counts for a profile.
type GetStatsResult struct {
	ProfileID    string         `json:"profile_id"`
	Counts       map[string]int `json:"counts"`        // Entity type → entry count; empty types omitted
	TotalEntries int            `json:"total_entries"` // Sum over all types
	Personas     int            `json:"personas"`      // Number of stored custom personas
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	Method  string      `json:"method"`  // Method name
	Params  interface{} `json:"params"`  // Method parameters
	ID      interface{} `json:"id"`      // Request ID (string, number, or null)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`          // Must be "2.0"
	Result  interface{}   `json:"result,omitempty"` // Result (if successful)
	Error   *JSONRPCError `json:"error,omitempty"`  // Error (if failed)
	ID      interface{}   `json:"id"`               // Request ID
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional error data
}

// JSON-RPC error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrCodeServerError    = -32000 // Server error
)

// ---------------------------------------------------------------------------
// Standard MCP protocol types (initialize / tools/list / tools/call)
// ---------------------------------------------------------------------------

// MCPInitializeParams holds the parameters sent by an MCP client in the
// initialize request.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo"`
}

// MCPClientInfo identifies the connecting MCP client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerInfo identifies this MCP server.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPServerCapabilities describes what this server supports.
type MCPServerCapabilities struct {
	Tools     *MCPToolsCapability     `json:"tools,omitempty"`
	Resources *MCPResourcesCapability `json:"resources,omitempty"`
}

// MCPToolsCapability signals that the server exposes tools.
type MCPToolsCapability struct{}

// MCPResourcesCapability signals that the server exposes readable resources.
type MCPResourcesCapability struct{}

// MCPInitializeResult is the response to the initialize request.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPTool describes a single tool exposed via the MCP tools/list endpoint.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response to the tools/list request.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPResource describes a single resource exposed via resources/list.
type MCPResource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// MCPResourcesListResult is the response to the resources/list request.
type MCPResourcesListResult struct {
	Resources []MCPResource `json:"resources"`
}

// MCPResourcesReadParams holds the parameters sent in a resources/read request.
type MCPResourcesReadParams struct {
	URI string `json:"uri"`
}

// MCPResourceContents is a single content block in a resources/read response.
type MCPResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// MCPResourcesReadResult is the response to a resources/read request.
type MCPResourcesReadResult struct {
	Contents []MCPResourceContents `json:"contents"`
}

// MCPToolCallParams holds the parameters sent in a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// MCPToolCallContent is a single content block in a tool call response.
type MCPToolCallContent struct {
	Type string `json:"type"` // always "text" for now
	Text string `json:"text"`
}

// MCPToolCallResult is the response to a tools/call request.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}
