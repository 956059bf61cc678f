// Package postgres implements the storage interfaces on top of PostgreSQL
// via lib/pq. Select it with SELFMAP_STORAGE_ENGINE=postgres and a DSN in
// SELFMAP_POSTGRES_DSN.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// Schema defines the PostgreSQL schema for selfmap. Mirrors the SQLite
// schema with native types (JSONB, TIMESTAMPTZ, BOOLEAN).
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS personas (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (profile_id, name)
);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	importance INTEGER NOT NULL DEFAULT 5,
	confidence INTEGER NOT NULL DEFAULT 8,
	is_private BOOLEAN NOT NULL DEFAULT FALSE,
	is_public  BOOLEAN NOT NULL DEFAULT TRUE,
	attrs      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_profile_kind
	ON entries (profile_id, kind, importance, confidence);
`

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore connects to PostgreSQL using the given DSN, verifies the
// connection, and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProfile inserts a new profile.
func (s *Store) CreateProfile(ctx context.Context, p *types.Profile) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: profile ID is required", storage.ErrInvalidInput)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: profile name is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, data, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		p.ID, data, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: profile ID is required", storage.ErrInvalidInput)
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile replaces an existing profile.
func (s *Store) UpdateProfile(ctx context.Context, p *types.Profile) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: profile ID is required", storage.ErrInvalidInput)
	}

	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET data = $1, updated_at = $2 WHERE id = $3`,
		data, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DefaultProfile returns the first profile in creation order.
func (s *Store) DefaultProfile(ctx context.Context) (*types.Profile, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles ORDER BY created_at ASC, id ASC LIMIT 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query default profile: %w", err)
	}

	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// SavePersona creates or updates a custom persona.
func (s *Store) SavePersona(ctx context.Context, rec *types.PersonaRecord) error {
	if rec == nil || rec.Name == "" {
		return fmt.Errorf("%w: persona name is required", storage.ErrInvalidInput)
	}
	if rec.ProfileID == "" {
		return fmt.Errorf("%w: persona profile_id is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal persona: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO personas (id, profile_id, name, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (profile_id, name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, rec.ID, rec.ProfileID, rec.Name, data, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert persona: %w", err)
	}
	return nil
}

// GetPersona retrieves a custom persona by exact name for a profile.
func (s *Store) GetPersona(ctx context.Context, profileID, name string) (*types.PersonaRecord, error) {
	if profileID == "" || name == "" {
		return nil, fmt.Errorf("%w: profile_id and name are required", storage.ErrInvalidInput)
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM personas WHERE profile_id = $1 AND name = $2`,
		profileID, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query persona: %w", err)
	}

	var rec types.PersonaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode persona: %w", err)
	}
	return &rec, nil
}

// ListPersonaNames returns the names of all custom personas for a profile.
func (s *Store) ListPersonaNames(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM personas WHERE profile_id = $1 ORDER BY name ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan persona name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeletePersona removes a custom persona by name.
func (s *Store) DeletePersona(ctx context.Context, profileID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM personas WHERE profile_id = $1 AND name = $2`, profileID, name)
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// privacyFlags mirrors the visibility flags of an entry into filterable
// columns. See the sqlite backend for the rationale.
func privacyFlags(e types.Entry) (isPrivate, isPublic bool) {
	switch v := e.(type) {
	case *types.HealthEntry:
		return v.IsPrivate, true
	case *types.Relationship:
		return v.IsPrivate, true
	case *types.FAQEntry:
		return false, v.IsPublic
	default:
		return false, true
	}
}

// UpsertEntry creates or updates an entry.
func (s *Store) UpsertEntry(ctx context.Context, e types.Entry) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	rec := e.Meta()
	if rec.ID == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}
	if rec.ProfileID == "" {
		return fmt.Errorf("%w: entry profile_id is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Importance = rec.EffectiveImportance()
	rec.Confidence = rec.EffectiveConfidence()

	attrs, err := types.EncodeEntry(e)
	if err != nil {
		return err
	}

	isPrivate, isPublic := privacyFlags(e)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (
			id, profile_id, kind, importance, confidence,
			is_private, is_public, attrs, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			profile_id = excluded.profile_id,
			kind       = excluded.kind,
			importance = excluded.importance,
			confidence = excluded.confidence,
			is_private = excluded.is_private,
			is_public  = excluded.is_public,
			attrs      = excluded.attrs,
			updated_at = excluded.updated_at
	`, rec.ID, rec.ProfileID, string(e.Kind()), rec.Importance, rec.Confidence,
		isPrivate, isPublic, attrs, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (types.Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	var (
		kind  string
		attrs []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, attrs FROM entries WHERE id = $1`, id).Scan(&kind, &attrs)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}

	return types.DecodeEntry(types.EntityType(kind), attrs)
}

// DeleteEntry removes an entry by ID.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListEntries retrieves entries of one entity type subject to the filter.
func (s *Store) ListEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) ([]types.Entry, error) {
	if f.ProfileID == "" {
		return nil, fmt.Errorf("%w: profile_id is required", storage.ErrInvalidInput)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", storage.ErrInvalidInput, kind)
	}

	query := `
		SELECT attrs FROM entries
		WHERE profile_id = $1 AND kind = $2
		  AND importance >= $3 AND confidence >= $4
	`
	args := []any{f.ProfileID, string(kind), f.MinImportance, f.MinConfidence}

	if !f.IncludePrivate {
		query += ` AND is_private = FALSE AND is_public = TRUE`
	}

	query += ` ORDER BY importance DESC, updated_at DESC, id ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var result []types.Entry
	for rows.Next() {
		var attrs []byte
		if err := rows.Scan(&attrs); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e, err := types.DecodeEntry(kind, attrs)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// CountEntries returns the number of rows matching the filter, ignoring the
// limit.
func (s *Store) CountEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) (int, error) {
	if f.ProfileID == "" {
		return 0, fmt.Errorf("%w: profile_id is required", storage.ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM entries
		WHERE profile_id = $1 AND kind = $2
		  AND importance >= $3 AND confidence >= $4
	`
	if !f.IncludePrivate {
		query += ` AND is_private = FALSE AND is_public = TRUE`
	}

	var n int
	err := s.db.QueryRowContext(ctx, query,
		f.ProfileID, string(kind), f.MinImportance, f.MinConfidence).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// CountByKind returns entry counts per entity type for a profile.
func (s *Store) CountByKind(ctx context.Context, profileID string) (map[types.EntityType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM entries WHERE profile_id = $1 GROUP BY kind`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.EntityType]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[types.EntityType(kind)] = n
	}
	return counts, rows.Err()
}
