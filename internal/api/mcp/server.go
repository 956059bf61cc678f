package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/selfmap/selfmap/internal/config"
	"github.com/selfmap/selfmap/internal/contextgen"
	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// presetPersonaNames are the built-in personas. They cannot be overwritten
// or deleted through the persona tools.
var presetPersonaNames = map[string]bool{
	"default":      true,
	"professional": true,
	"interview":    true,
	"personal":     true,
	"creative":     true,
}

// Server implements the Model Context Protocol (MCP) for selfmap.
// It provides JSON-RPC 2.0 based tools for AI assistants to generate
// persona-weighted context documents and manage the underlying data.
type Server struct {
	store     storage.Store
	generator *contextgen.Generator
	resolver  *contextgen.Resolver
	config    *config.Config
	sessionID string // unique ID generated once per MCP server lifetime
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithConfig injects a *config.Config into the Server.
// When this option is not provided the server's config field is nil, so
// callers that depend on the config should always supply this option.
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithGenerator replaces the default context generator. Tests use this to
// inject a generator with a frozen clock.
func WithGenerator(g *contextgen.Generator) ServerOption {
	return func(s *Server) {
		s.generator = g
	}
}

// NewServer creates a new MCP server instance on top of the given store.
//
// The variadic opts parameter accepts zero or more ServerOption values;
// passing none is valid:
//
//	srv := mcp.NewServer(store)                        // defaults
//	srv := mcp.NewServer(store, mcp.WithConfig(cfg))   // with config
func NewServer(store storage.Store, opts ...ServerOption) *Server {
	s := &Server{
		store:     store,
		generator: contextgen.NewGenerator(store),
		resolver:  contextgen.NewResolver(store),
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Printf("selfmap-mcp: session ID: %s", s.sessionID)
	return s
}

// Config returns the configuration that was injected via WithConfig, or nil
// if no config option was provided.
func (s *Server) Config() *config.Config {
	return s.config
}

// HandleRequest processes a JSON-RPC 2.0 request and returns a response.
// This is the main entry point for MCP protocol handling.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err)
	}

	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	var result interface{}
	var err error

	switch req.Method {
	// Standard MCP protocol methods
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "initialized":
		// Notification; no response body required.
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)
	case "resources/list":
		result, err = s.handleResourcesList(ctx, req.Params)
	case "resources/read":
		result, err = s.handleResourcesRead(ctx, req.Params)

	// Native JSON-RPC methods (kept for direct callers)
	case "get_context":
		result, err = s.handleGetContext(ctx, req.Params)
	case "list_available_personas":
		result, err = s.handleListPersonas(ctx, req.Params)
	case "save_persona":
		result, err = s.handleSavePersona(ctx, req.Params)
	case "delete_persona":
		result, err = s.handleDeletePersona(ctx, req.Params)
	case "create_profile":
		result, err = s.handleCreateProfile(ctx, req.Params)
	case "get_profile":
		result, err = s.handleGetProfile(ctx, req.Params)
	case "update_profile":
		result, err = s.handleUpdateProfile(ctx, req.Params)
	case "upsert_entry":
		result, err = s.handleUpsertEntry(ctx, req.Params)
	case "get_entry":
		result, err = s.handleGetEntry(ctx, req.Params)
	case "delete_entry":
		result, err = s.handleDeleteEntry(ctx, req.Params)
	case "list_entries":
		result, err = s.handleListEntries(ctx, req.Params)
	case "search_entries":
		result, err = s.handleSearchEntries(ctx, req.Params)
	case "get_stats":
		result, err = s.handleGetStats(ctx, req.Params)
	default:
		return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if err != nil {
		return s.errorResponse(req.ID, ErrCodeServerError, err.Error(), nil)
	}

	return s.successResponse(req.ID, result)
}

// resolveProfileID returns the explicit profile ID when given, otherwise the
// first profile in the store.
func (s *Server) resolveProfileID(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	p, err := s.store.DefaultProfile(ctx)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// GetContext generates the persona-weighted Markdown context document.
func (s *Server) GetContext(ctx context.Context, args GetContextArgs) (string, error) {
	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve profile: %w", err)
	}

	persona := args.Persona
	if persona == "" && s.config != nil {
		persona = s.config.Context.DefaultPersona
	}
	hint := args.MaxTokensHint
	if hint == 0 && s.config != nil {
		hint = s.config.Context.MaxTokensHint
	}

	return s.generator.Generate(ctx, profileID, contextgen.Options{
		Persona:       persona,
		Focus:         args.Focus,
		MaxTokensHint: hint,
	})
}

// ListPersonas returns the preset persona names followed by the profile's
// custom personas.
func (s *Server) ListPersonas(ctx context.Context, args GetProfileArgs) (*ListPersonasResult, error) {
	// Persona listing works even before any profile exists; presets are
	// always available.
	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		profileID = ""
	}
	return &ListPersonasResult{Personas: s.resolver.ListAvailable(ctx, profileID)}, nil
}

// SavePersona creates or replaces a custom persona for a profile.
func (s *Server) SavePersona(ctx context.Context, args SavePersonaArgs) (*SavePersonaResult, error) {
	if args.Name == "" {
		return nil, errors.New("name is required")
	}
	if presetPersonaNames[args.Name] {
		return nil, fmt.Errorf("persona %q is a built-in preset and cannot be overwritten", args.Name)
	}
	if err := validateWeights(args.EntityWeights); err != nil {
		return nil, err
	}

	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	weights := make(map[types.EntityType]float64, len(args.EntityWeights))
	for k, v := range args.EntityWeights {
		t, err := types.ParseEntityType(k)
		if err != nil {
			return nil, err
		}
		weights[t] = v
	}
	excludes := make([]types.EntityType, 0, len(args.ExcludeEntities))
	for _, k := range args.ExcludeEntities {
		t, err := types.ParseEntityType(k)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, t)
	}

	now := time.Now()
	rec := &types.PersonaRecord{
		ID:                uuid.New().String(),
		ProfileID:         profileID,
		Name:              args.Name,
		Description:       args.Description,
		SystemInstruction: args.SystemInstruction,
		Tone:              args.Tone,
		Language:          args.Language,
		EntityWeights:     weights,
		IncludePrivate:    args.IncludePrivate,
		ExcludeEntities:   excludes,
		MinImportance:     args.MinImportance,
		MinConfidence:     args.MinConfidence,
		TimeDecayDays:     args.TimeDecayDays,
		MaxEntriesPerType: args.MaxEntriesPerType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.SavePersona(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save persona: %w", err)
	}

	return &SavePersonaResult{
		Name:    args.Name,
		Message: fmt.Sprintf("Persona %q saved. Use get_context with persona=%q to apply it.", args.Name, args.Name),
	}, nil
}

// DeletePersona removes a custom persona. Presets cannot be deleted.
func (s *Server) DeletePersona(ctx context.Context, args DeletePersonaArgs) (*DeletePersonaResult, error) {
	if args.Name == "" {
		return nil, errors.New("name is required")
	}
	if presetPersonaNames[args.Name] {
		return nil, fmt.Errorf("persona %q is a built-in preset and cannot be deleted", args.Name)
	}

	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	if err := s.store.DeletePersona(ctx, profileID, args.Name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("persona %q not found", args.Name)
		}
		return nil, fmt.Errorf("failed to delete persona: %w", err)
	}
	return &DeletePersonaResult{Name: args.Name, Deleted: true}, nil
}

// CreateProfile creates the subject profile.
func (s *Server) CreateProfile(ctx context.Context, args CreateProfileArgs) (*CreateProfileResult, error) {
	if args.Profile.Name == "" {
		return nil, errors.New("profile name is required")
	}

	p := args.Profile
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &CreateProfileResult{
		ID:      p.ID,
		Message: "Profile created. Add entries with upsert_entry, then call get_context.",
	}, nil
}

// GetProfile fetches a profile, defaulting to the first one.
func (s *Server) GetProfile(ctx context.Context, args GetProfileArgs) (*GetProfileResult, error) {
	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &GetProfileResult{Profile: p}, nil
}

// UpdateProfile replaces an existing profile.
func (s *Server) UpdateProfile(ctx context.Context, args UpdateProfileArgs) (*UpdateProfileResult, error) {
	p := args.Profile
	if p.ID == "" {
		id, err := s.resolveProfileID(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve profile: %w", err)
		}
		p.ID = id
	}
	if p.Name == "" {
		return nil, errors.New("profile name is required")
	}

	// Replacement keeps the original creation time.
	existing, err := s.store.GetProfile(ctx, p.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("profile %q not found", p.ID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()

	if err := s.store.UpdateProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &UpdateProfileResult{ID: p.ID, Updated: true}, nil
}

// UpsertEntry creates or updates a typed entry.
func (s *Server) UpsertEntry(ctx context.Context, args UpsertEntryArgs) (*UpsertEntryResult, error) {
	kind, err := types.ParseEntityType(args.Type)
	if err != nil {
		return nil, err
	}
	if len(args.Entry) == 0 {
		return nil, errors.New("entry is required")
	}

	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	e, err := types.DecodeEntry(kind, args.Entry)
	if err != nil {
		return nil, err
	}

	// FAQ entries are public unless the caller says otherwise, mirroring
	// the is_public column default.
	if fe, ok := e.(*types.FAQEntry); ok && !fe.IsPublic {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(args.Entry, &fields); err == nil {
			if _, explicit := fields["is_public"]; !explicit {
				fe.IsPublic = true
			}
		}
	}

	rec := e.Meta()
	if err := validateScale("importance", rec.Importance); err != nil {
		return nil, err
	}
	if err := validateScale("confidence", rec.Confidence); err != nil {
		return nil, err
	}

	now := time.Now()
	created := rec.ID == ""
	if created {
		rec.ID = uuid.New().String()
		rec.CreatedAt = now
	} else if _, err := s.store.GetEntry(ctx, rec.ID); errors.Is(err, storage.ErrNotFound) {
		created = true
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
	}
	rec.ProfileID = profileID
	rec.UpdatedAt = now
	if len(args.Tags) > 0 {
		rec.Tags = args.Tags
	}

	if err := s.store.UpsertEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to upsert entry: %w", err)
	}

	msg := "Entry updated."
	if created {
		msg = "Entry created."
	}
	return &UpsertEntryResult{ID: rec.ID, Type: string(kind), Created: created, Message: msg}, nil
}

// GetEntry fetches an entry by ID.
func (s *Server) GetEntry(ctx context.Context, args GetEntryArgs) (*GetEntryResult, error) {
	if args.ID == "" {
		return nil, errors.New("id is required")
	}
	e, err := s.store.GetEntry(ctx, args.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("entry %q not found", args.ID)
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	data, err := types.EncodeEntry(e)
	if err != nil {
		return nil, err
	}
	return &GetEntryResult{Type: string(e.Kind()), Entry: data}, nil
}

// DeleteEntry removes an entry by ID.
func (s *Server) DeleteEntry(ctx context.Context, args DeleteEntryArgs) (*DeleteEntryResult, error) {
	if args.ID == "" {
		return nil, errors.New("id is required")
	}
	if err := s.store.DeleteEntry(ctx, args.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("entry %q not found", args.ID)
		}
		return nil, fmt.Errorf("failed to delete entry: %w", err)
	}
	return &DeleteEntryResult{ID: args.ID, Deleted: true}, nil
}

// ListEntries returns entries of one type, newest and most important first.
func (s *Server) ListEntries(ctx context.Context, args ListEntriesArgs) (*ListEntriesResult, error) {
	kind, err := types.ParseEntityType(args.Type)
	if err != nil {
		return nil, err
	}
	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	filter := storage.EntryFilter{
		ProfileID:      profileID,
		MinImportance:  args.MinImportance,
		MinConfidence:  args.MinConfidence,
		IncludePrivate: args.IncludePrivate,
		Limit:          limit,
	}

	entries, err := s.store.ListEntries(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	total, err := s.store.CountEntries(ctx, kind, filter)
	if err != nil {
		total = len(entries)
	}

	raw := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		data, err := types.EncodeEntry(e)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return &ListEntriesResult{Type: string(kind), Entries: raw, Total: total}, nil
}

// SearchEntries runs a cross-entity keyword search. Each requested type is
// scanned with the same field walk the focus boost uses, so search hits and
// focus matches always agree.
func (s *Server) SearchEntries(ctx context.Context, args SearchEntriesArgs) (*SearchEntriesResult, error) {
	if args.Query == "" {
		return nil, errors.New("query is required")
	}

	kinds := types.AllEntityTypes
	if len(args.Types) > 0 {
		kinds = make([]types.EntityType, 0, len(args.Types))
		for _, k := range args.Types {
			t, err := types.ParseEntityType(k)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, t)
		}
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	results := map[string][]json.RawMessage{}
	total := 0
	for _, kind := range kinds {
		entries, err := s.store.ListEntries(ctx, kind, storage.EntryFilter{
			ProfileID:      profileID,
			IncludePrivate: args.IncludePrivate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", kind, err)
		}
		var hits []json.RawMessage
		for _, e := range entries {
			if !contextgen.MatchesKeyword(e, args.Query) {
				continue
			}
			data, err := types.EncodeEntry(e)
			if err != nil {
				return nil, err
			}
			hits = append(hits, data)
			if len(hits) >= limit {
				break
			}
		}
		if len(hits) > 0 {
			results[string(kind)] = hits
			total += len(hits)
		}
	}

	return &SearchEntriesResult{
		Query:         args.Query,
		Results:       results,
		TypesSearched: len(kinds),
		TotalHits:     total,
	}, nil
}

// GetStats returns per-type entry counts for a profile.
func (s *Server) GetStats(ctx context.Context, args GetStatsArgs) (*GetStatsResult, error) {
	profileID, err := s.resolveProfileID(ctx, args.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	counts, err := s.store.CountByKind(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	out := make(map[string]int, len(counts))
	total := 0
	for kind, n := range counts {
		out[string(kind)] = n
		total += n
	}

	personas, err := s.store.ListPersonaNames(ctx, profileID)
	if err != nil {
		personas = nil
	}

	return &GetStatsResult{
		ProfileID:    profileID,
		Counts:       out,
		TotalEntries: total,
		Personas:     len(personas),
	}, nil
}

// validateScale checks an optional 1-10 field (0 means unset).
func validateScale(field string, v int) error {
	if v < 0 || v > 10 {
		return fmt.Errorf("%s must be between 1 and 10", field)
	}
	return nil
}

func validateWeights(weights map[string]float64) error {
	for k, v := range weights {
		if v < 0 {
			return fmt.Errorf("entity weight for %q must be non-negative", k)
		}
	}
	return nil
}
