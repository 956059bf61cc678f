// Package storage defines the storage interfaces for the selfmap system.
//
// The layer is split into small, focused interfaces (profile, persona, entry)
// that backends implement independently and that the Store interface composes.
// Two backends exist: internal/storage/sqlite (default) and
// internal/storage/postgres.
package storage

import (
	"context"
	"errors"

	"github.com/selfmap/selfmap/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrNoProfile indicates that no profile exists yet. Context generation
	// cannot proceed without a profile, so callers surface this condition
	// directly.
	ErrNoProfile = errors.New("no profile found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// EntryFilter bounds an entry retrieval for one entity type.
type EntryFilter struct {
	// ProfileID scopes the query to a single profile (required).
	ProfileID string

	// MinImportance is the inclusive floor on importance (0 means no floor).
	MinImportance int

	// MinConfidence is the inclusive floor on confidence (0 means no floor).
	MinConfidence int

	// IncludePrivate includes entries flagged private (health, relationships)
	// and FAQ entries not flagged public.
	IncludePrivate bool

	// Limit caps the number of returned rows (0 means no cap).
	Limit int
}

// ProfileStore provides CRUD access to profiles and resolves the default
// profile for a request.
type ProfileStore interface {
	// CreateProfile inserts a new profile. The ID is assigned by the caller.
	CreateProfile(ctx context.Context, p *types.Profile) error

	// GetProfile retrieves a profile by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetProfile(ctx context.Context, id string) (*types.Profile, error)

	// UpdateProfile replaces an existing profile.
	// Returns ErrNotFound if it doesn't exist.
	UpdateProfile(ctx context.Context, p *types.Profile) error

	// DefaultProfile returns the first profile in creation order. This is the
	// profile-resolution collaborator for context generation; it returns
	// ErrNoProfile when the store holds no profile at all.
	DefaultProfile(ctx context.Context) (*types.Profile, error)
}

// PersonaStore provides access to stored custom personas.
type PersonaStore interface {
	// SavePersona creates or updates a custom persona (upsert keyed on
	// profile_id + name).
	SavePersona(ctx context.Context, rec *types.PersonaRecord) error

	// GetPersona retrieves a custom persona by exact name for a profile.
	// Returns ErrNotFound if it doesn't exist.
	GetPersona(ctx context.Context, profileID, name string) (*types.PersonaRecord, error)

	// ListPersonaNames returns the names of all custom personas owned by the
	// profile, sorted by name.
	ListPersonaNames(ctx context.Context, profileID string) ([]string, error)

	// DeletePersona removes a custom persona by name.
	// Returns ErrNotFound if it doesn't exist.
	DeletePersona(ctx context.Context, profileID, name string) error
}

// EntryStore provides CRUD access to typed entries and the bounded per-type
// retrieval used by the context generator.
type EntryStore interface {
	// UpsertEntry creates or updates an entry (upsert keyed on ID).
	UpsertEntry(ctx context.Context, e types.Entry) error

	// GetEntry retrieves an entry by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetEntry(ctx context.Context, id string) (types.Entry, error)

	// DeleteEntry removes an entry by ID.
	// Returns ErrNotFound if it doesn't exist.
	DeleteEntry(ctx context.Context, id string) error

	// ListEntries retrieves entries of one entity type subject to the filter.
	// Rows are ordered importance DESC, updated_at DESC, id ASC so that equal
	// scores downstream keep a deterministic order.
	ListEntries(ctx context.Context, kind types.EntityType, f EntryFilter) ([]types.Entry, error)

	// CountEntries returns the number of rows of one entity type matching
	// the filter, ignoring the limit. Used for the "original unfiltered
	// count" carried by a rendered section.
	CountEntries(ctx context.Context, kind types.EntityType, f EntryFilter) (int, error)

	// CountByKind returns entry counts per entity type for a profile. Types
	// with no entries are omitted.
	CountByKind(ctx context.Context, profileID string) (map[types.EntityType]int, error)
}

// Store composes all storage capabilities of a backend.
type Store interface {
	ProfileStore
	PersonaStore
	EntryStore

	// Close releases any resources held by the store.
	Close() error
}
