package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/internal/version"
	"github.com/castoldi/stash/store"
)

// DB is the PostgreSQL driver. It requires the pgvector extension for the
// embedding column and nearest-neighbor queries.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	postgresDB.SetMaxOpenConns(25)
	postgresDB.SetMaxIdleConns(5)

	driver := DB{db: postgresDB, profile: profile}
	return &driver, nil
}

const latestSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS content (
	id TEXT PRIMARY KEY,
	owner_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	body_text TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	category TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}',
	priority INTEGER NOT NULL DEFAULT 0,
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	is_archived BOOLEAN NOT NULL DEFAULT FALSE,
	access_count INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	accessed_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_content_owner_id ON content (owner_id);
CREATE INDEX IF NOT EXISTS idx_content_owner_accessed ON content (owner_id, accessed_ts DESC);

CREATE TABLE IF NOT EXISTS content_embedding (
	content_id TEXT PRIMARY KEY REFERENCES content (id) ON DELETE CASCADE,
	embedding vector(768) NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tag_usage (
	id SERIAL PRIMARY KEY,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL,
	UNIQUE (owner_id, name)
);

CREATE TABLE IF NOT EXISTS system_info (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const schemaVersionKey = "schema_version"

// Migrate applies the latest schema and records the binary's minor version.
// A database written by a newer binary is refused rather than downgraded.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	current := version.GetMinorVersion(d.profile.Version)
	var recorded string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM system_info WHERE key = $1", schemaVersionKey).Scan(&recorded)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "failed to read schema version")
	}
	if recorded != "" && !version.IsVersionGreaterOrEqualThan(current, recorded) {
		return errors.Errorf("database schema version %s is newer than binary version %s", recorded, current)
	}
	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO system_info (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, schemaVersionKey, current); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
