package sqlite

// Schema defines the SQLite database schema for selfmap.
//
// Entries of all entity types share one table. The typed attribute document
// lives in the attrs JSON column; the columns used for filtering (importance,
// confidence, privacy flags) are mirrored out of it so the per-type retrieval
// can run entirely in SQL.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS personas (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (profile_id, name)
);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	importance INTEGER NOT NULL DEFAULT 5,
	confidence INTEGER NOT NULL DEFAULT 8,
	is_private INTEGER NOT NULL DEFAULT 0,
	is_public  INTEGER NOT NULL DEFAULT 1,
	attrs      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_profile_kind
	ON entries (profile_id, kind, importance, confidence);

CREATE INDEX IF NOT EXISTS idx_personas_profile
	ON personas (profile_id, name);
`
