// Package sqlite implements the storage interfaces on top of a local SQLite
// database via modernc.org/sqlite. This is the default backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/selfmap/selfmap/internal/storage"
	"github.com/selfmap/selfmap/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) a SQLite database at dsn, configures
// WAL mode, and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single concurrent writer. One open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent fetches;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers that need raw access (tests,
// maintenance commands).
func (s *Store) DB() *sql.DB {
	return s.db
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

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
		`INSERT INTO profiles (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.ID, string(data), p.CreatedAt, p.UpdatedAt)
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

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return decodeProfile(data)
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
		`UPDATE profiles SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DefaultProfile returns the first profile in creation order. Returns
// ErrNoProfile when the store holds no profile.
func (s *Store) DefaultProfile(ctx context.Context) (*types.Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles ORDER BY created_at ASC, id ASC LIMIT 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query default profile: %w", err)
	}
	return decodeProfile(data)
}

func decodeProfile(data string) (*types.Profile, error) {
	var p types.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// Personas
// ---------------------------------------------------------------------------

// SavePersona creates or updates a custom persona (upsert on profile+name).
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, rec.ID, rec.ProfileID, rec.Name, string(data), rec.CreatedAt, rec.UpdatedAt)
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

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM personas WHERE profile_id = ? AND name = ?`,
		profileID, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query persona: %w", err)
	}

	var rec types.PersonaRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode persona: %w", err)
	}
	return &rec, nil
}

// ListPersonaNames returns the names of all custom personas for a profile,
// sorted by name.
func (s *Store) ListPersonaNames(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM personas WHERE profile_id = ? ORDER BY name ASC`, profileID)
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
		`DELETE FROM personas WHERE profile_id = ? AND name = ?`, profileID, name)
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// privacyFlags extracts the filterable visibility flags for an entry. Types
// without a flag default to not-private / public so a single SQL predicate
// covers every kind.
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

	// Materialise the defaults so the indexed floor filters see the
	// effective values.
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		boolToInt(isPrivate), boolToInt(isPublic), string(attrs), rec.CreatedAt, rec.UpdatedAt)
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
		attrs string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, attrs FROM entries WHERE id = ?`, id).Scan(&kind, &attrs)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}

	return types.DecodeEntry(types.EntityType(kind), []byte(attrs))
}

// DeleteEntry removes an entry by ID.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListEntries retrieves entries of one entity type subject to the filter.
// Order: importance DESC, updated_at DESC, id ASC. Deterministic, so equal
// downstream scores keep fetch order.
func (s *Store) ListEntries(ctx context.Context, kind types.EntityType, f storage.EntryFilter) ([]types.Entry, error) {
	if f.ProfileID == "" {
		return nil, fmt.Errorf("%w: profile_id is required", storage.ErrInvalidInput)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", storage.ErrInvalidInput, kind)
	}

	query := `
		SELECT attrs FROM entries
		WHERE profile_id = ? AND kind = ?
		  AND importance >= ? AND confidence >= ?
	`
	args := []any{f.ProfileID, string(kind), f.MinImportance, f.MinConfidence}

	if !f.IncludePrivate {
		query += ` AND is_private = 0 AND is_public = 1`
	}

	query += ` ORDER BY importance DESC, updated_at DESC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var result []types.Entry
	for rows.Next() {
		var attrs string
		if err := rows.Scan(&attrs); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e, err := types.DecodeEntry(kind, []byte(attrs))
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
		WHERE profile_id = ? AND kind = ?
		  AND importance >= ? AND confidence >= ?
	`
	if !f.IncludePrivate {
		query += ` AND is_private = 0 AND is_public = 1`
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
		`SELECT kind, COUNT(*) FROM entries WHERE profile_id = ? GROUP BY kind`, profileID)
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
