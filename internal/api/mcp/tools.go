package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *Server) handleInitialize(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: MCPServerCapabilities{
			Tools:     &MCPToolsCapability{},
			Resources: &MCPResourcesCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    "selfmap",
			Version: "1.0.0",
		},
	}, nil
}

// handleToolsList returns the list of all tools this server exposes.
func (s *Server) handleToolsList(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall dispatches a tools/call request to the appropriate handler
// and wraps the result in the MCP content envelope.
func (s *Server) handleToolsCall(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Re-marshal arguments so they can be passed to the handlers which
	// expect an interface{} produced by JSON unmarshal.
	argsJSON, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	var rawParams interface{}
	if err := json.Unmarshal(argsJSON, &rawParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	// get_context returns the Markdown document itself, not a JSON envelope.
	if p.Name == "get_context" {
		var args GetContextArgs
		if err := s.unmarshalParams(rawParams, &args); err != nil {
			return nil, err
		}
		doc, err := s.GetContext(ctx, args)
		if err != nil {
			return &MCPToolCallResult{
				Content: []MCPToolCallContent{{Type: "text", Text: err.Error()}},
				IsError: true,
			}, nil
		}
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: doc}},
		}, nil
	}

	var result interface{}
	var handlerErr error

	switch p.Name {
	case "list_available_personas":
		result, handlerErr = s.handleListPersonas(ctx, rawParams)
	case "save_persona":
		result, handlerErr = s.handleSavePersona(ctx, rawParams)
	case "delete_persona":
		result, handlerErr = s.handleDeletePersona(ctx, rawParams)
	case "create_profile":
		result, handlerErr = s.handleCreateProfile(ctx, rawParams)
	case "get_profile":
		result, handlerErr = s.handleGetProfile(ctx, rawParams)
	case "update_profile":
		result, handlerErr = s.handleUpdateProfile(ctx, rawParams)
	case "upsert_entry":
		result, handlerErr = s.handleUpsertEntry(ctx, rawParams)
	case "get_entry":
		result, handlerErr = s.handleGetEntry(ctx, rawParams)
	case "delete_entry":
		result, handlerErr = s.handleDeleteEntry(ctx, rawParams)
	case "list_entries":
		result, handlerErr = s.handleListEntries(ctx, rawParams)
	case "search_entries":
		result, handlerErr = s.handleSearchEntries(ctx, rawParams)
	case "get_stats":
		result, handlerErr = s.handleGetStats(ctx, rawParams)
	default:
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: string(text)}},
	}, nil
}

// --- JSON-RPC param wrappers ---------------------------------------------

func (s *Server) handleGetContext(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetContextArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	doc, err := s.GetContext(ctx, args)
	if err != nil {
		return nil, err
	}
	return map[string]string{"context": doc}, nil
}

func (s *Server) handleListPersonas(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetProfileArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.ListPersonas(ctx, args)
}

func (s *Server) handleSavePersona(ctx context.Context, params interface{}) (interface{}, error) {
	var args SavePersonaArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.SavePersona(ctx, args)
}

func (s *Server) handleDeletePersona(ctx context.Context, params interface{}) (interface{}, error) {
	var args DeletePersonaArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.DeletePersona(ctx, args)
}

func (s *Server) handleCreateProfile(ctx context.Context, params interface{}) (interface{}, error) {
	var args CreateProfileArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.CreateProfile(ctx, args)
}

func (s *Server) handleGetProfile(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetProfileArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, args)
}

func (s *Server) handleUpdateProfile(ctx context.Context, params interface{}) (interface{}, error) {
	var args UpdateProfileArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.UpdateProfile(ctx, args)
}

func (s *Server) handleUpsertEntry(ctx context.Context, params interface{}) (interface{}, error) {
	var args UpsertEntryArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.UpsertEntry(ctx, args)
}

func (s *Server) handleGetEntry(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetEntryArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, args)
}

func (s *Server) handleDeleteEntry(ctx context.Context, params interface{}) (interface{}, error) {
	var args DeleteEntryArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.DeleteEntry(ctx, args)
}

func (s *Server) handleListEntries(ctx context.Context, params interface{}) (interface{}, error) {
	var args ListEntriesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.ListEntries(ctx, args)
}

func (s *Server) handleSearchEntries(ctx context.Context, params interface{}) (interface{}, error) {
	var args SearchEntriesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.SearchEntries(ctx, args)
}

func (s *Server) handleGetStats(ctx context.Context, params interface{}) (interface{}, error) {
	var args GetStatsArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.GetStats(ctx, args)
}

// entityTypeSchema is the reusable schema fragment for entity type fields.
func entityTypeSchema(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "string",
		"description": desc + " One of: career_entries, skills, projects, achievements, episodes, " +
			"education, hobbies, values_philosophy, health_entries, life_events, relationships, " +
			"goals, favorite_books, favorite_quotes, influences, daily_routines, favorite_tools, " +
			"faq, custom_entries.",
	}
}

// buildToolsList returns the canonical list of MCP tool definitions.
func (s *Server) buildToolsList() []MCPTool {
	return []MCPTool{
		{
			Name: "get_context",
			Description: "Generate a persona-weighted Markdown context document describing the subject person. " +
				"Entries are scored by importance, confidence, recency, and persona weights, then rendered at " +
				"full/summary/mention detail within the token budget. This is the primary read tool.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"persona":         map[string]interface{}{"type": "string", "description": "Persona name: default, professional, interview, personal, creative, or a custom persona"},
					"focus":           map[string]interface{}{"type": "string", "description": "Focus keyword; matching entries get a 1.5x score boost"},
					"max_tokens_hint": map[string]interface{}{"type": "integer", "description": "Soft output size target in tokens (default 4000)"},
					"profile_id":      map[string]interface{}{"type": "string", "description": "Profile to generate for (defaults to the first profile)"},
				},
			},
		},
		{
			Name:        "list_available_personas",
			Description: "List available personas: the five presets followed by custom personas stored for the profile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"profile_id": map[string]interface{}{"type": "string", "description": "Profile whose custom personas to include (defaults to the first profile)"},
				},
			},
		},
		{
			Name: "save_persona",
			Description: "Create or replace a custom persona: entity weights, exclusions, privacy, filter floors, and " +
				"time decay. Omitted fields take defaults (min_importance 1, min_confidence 1, time_decay_days 1825, " +
				"max_entries_per_type 20). Preset names cannot be overwritten.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]interface{}{
					"name":                 map[string]interface{}{"type": "string", "description": "Persona name (required)"},
					"description":          map[string]interface{}{"type": "string", "description": "Human-readable description"},
					"system_instruction":   map[string]interface{}{"type": "string", "description": "Instruction rendered into the document header blockquote"},
					"tone":                 map[string]interface{}{"type": "string", "description": "Tone hint rendered into the document header"},
					"language":             map[string]interface{}{"type": "string", "description": "Output language hint (default: auto)"},
					"entity_weights":       map[string]interface{}{"type": "object", "description": "Entity type to weight multiplier map; 0 drops the type, unlisted types weigh 1.0"},
					"include_private":      map[string]interface{}{"type": "boolean", "description": "Include private health/relationship entries and non-public FAQ entries"},
					"exclude_entities":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Entity types to drop entirely"},
					"min_importance":       map[string]interface{}{"type": "integer", "description": "Inclusive importance floor (1-10)"},
					"min_confidence":       map[string]interface{}{"type": "integer", "description": "Inclusive confidence floor (1-10)"},
					"time_decay_days":      map[string]interface{}{"type": "number", "description": "Recency half-life in days"},
					"max_entries_per_type": map[string]interface{}{"type": "integer", "description": "Per-type entry cap"},
					"profile_id":           map[string]interface{}{"type": "string", "description": "Owning profile (defaults to the first profile)"},
				},
			},
		},
		{
			Name:        "delete_persona",
			Description: "Delete a custom persona by name. Built-in presets cannot be deleted.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]interface{}{
					"name":       map[string]interface{}{"type": "string", "description": "Custom persona name (required)"},
					"profile_id": map[string]interface{}{"type": "string", "description": "Owning profile (defaults to the first profile)"},
				},
			},
		},
		{
			Name:        "create_profile",
			Description: "Create the subject profile (name, title, bio, values, personality). A selfmap database normally holds exactly one profile.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"profile"},
				"properties": map[string]interface{}{
					"profile": map[string]interface{}{"type": "object", "description": "Profile fields; name is required"},
				},
			},
		},
		{
			Name:        "get_profile",
			Description: "Fetch the subject profile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"profile_id": map[string]interface{}{"type": "string", "description": "Profile ID (defaults to the first profile)"},
				},
			},
		},
		{
			Name:        "update_profile",
			Description: "Replace the subject profile. Unset fields are cleared, so send the full profile.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"profile"},
				"properties": map[string]interface{}{
					"profile": map[string]interface{}{"type": "object", "description": "Full replacement profile; the id field selects the profile (defaults to the first profile)"},
				},
			},
		},
		{
			Name: "upsert_entry",
			Description: "Create or update a typed entry. Entries carry importance (1-10, default 5) and confidence " +
				"(1-10, default 8) that drive context scoring. Include an id in the entry object to update; omit it to create. " +
				"FAQ entries are public unless is_public is explicitly false.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"type", "entry"},
				"properties": map[string]interface{}{
					"type":       entityTypeSchema("Entity type (required)."),
					"entry":      map[string]interface{}{"type": "object", "description": "Typed entry fields as a JSON object (snake_case keys)"},
					"tags":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Tags; focus keywords match against them"},
					"profile_id": map[string]interface{}{"type": "string", "description": "Owning profile (defaults to the first profile)"},
				},
			},
		},
		{
			Name:        "get_entry",
			Description: "Fetch a single entry by ID.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id": map[string]interface{}{"type": "string", "description": "Entry ID (required)"},
				},
			},
		},
		{
			Name:        "delete_entry",
			Description: "Delete an entry by ID.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id": map[string]interface{}{"type": "string", "description": "Entry ID (required)"},
				},
			},
		},
		{
			Name:        "list_entries",
			Description: "List entries of one entity type, ordered by importance then recency. Private entries are excluded unless include_private is true.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"type"},
				"properties": map[string]interface{}{
					"type":            entityTypeSchema("Entity type (required)."),
					"min_importance":  map[string]interface{}{"type": "integer", "description": "Inclusive importance floor"},
					"min_confidence":  map[string]interface{}{"type": "integer", "description": "Inclusive confidence floor"},
					"include_private": map[string]interface{}{"type": "boolean", "description": "Include private entries (default false)"},
					"limit":           map[string]interface{}{"type": "integer", "description": "Max results (default 20, max 100)"},
					"profile_id":      map[string]interface{}{"type": "string", "description": "Owning profile (defaults to the first profile)"},
				},
			},
		},
		{
			Name: "search_entries",
			Description: "Cross-entity keyword search over the searchable text fields of every entry type. " +
				"Hits are grouped by entity type; the same matching rules drive the get_context focus boost.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"query"},
				"properties": map[string]interface{}{
					"query":           map[string]interface{}{"type": "string", "description": "Search keyword (required); case-insensitive substring match"},
					"types":           map[string]interface{}{"type": "array", "items": entityTypeSchema("Entity type."), "description": "Entity types to search (default: all)"},
					"limit":           map[string]interface{}{"type": "integer", "description": "Max hits per type (default 10, max 50)"},
					"include_private": map[string]interface{}{"type": "boolean", "description": "Search private entries too (default false)"},
					"profile_id":      map[string]interface{}{"type": "string", "description": "Profile to search (defaults to the first profile)"},
				},
			},
		},
		{
			Name:        "get_stats",
			Description: "Entry counts per entity type plus the number of stored custom personas.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"profile_id": map[string]interface{}{"type": "string", "description": "Profile to count for (defaults to the first profile)"},
				},
			},
		},
	}
}

// unmarshalParams unmarshals JSON-RPC parameters into a typed struct.
func (s *Server) unmarshalParams(params interface{}, dest interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}

	return nil
}

// successResponse creates a JSON-RPC success response.
func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return json.Marshal(resp)
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	return json.Marshal(resp)
}
