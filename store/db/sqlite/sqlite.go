package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/internal/version"
	"github.com/castoldi/stash/store"
)

// SQLite is supported on a best-effort basis for development and testing.
// Vectors are stored as little-endian float32 BLOBs and similarity search is
// computed in the application layer; production deployments should use
// PostgreSQL with pgvector.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database at the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode to avoid locking issues; single connection is optimal
	// for modernc.org/sqlite with WAL.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

const latestSchema = `
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
	tags TEXT NOT NULL DEFAULT '[]',
	category TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	priority INTEGER NOT NULL DEFAULT 0,
	is_favorite INTEGER NOT NULL DEFAULT 0,
	is_archived INTEGER NOT NULL DEFAULT 0,
	access_count INTEGER NOT NULL DEFAULT 0,
	created_ts INTEGER NOT NULL,
	updated_ts INTEGER NOT NULL,
	accessed_ts INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_content_owner_id ON content (owner_id);

CREATE TABLE IF NOT EXISTS content_embedding (
	content_id TEXT PRIMARY KEY REFERENCES content (id) ON DELETE CASCADE,
	embedding BLOB NOT NULL,
	updated_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tag_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_ts INTEGER NOT NULL,
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
	err := d.db.QueryRowContext(ctx, "SELECT value FROM system_info WHERE key = ?", schemaVersionKey).Scan(&recorded)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "failed to read schema version")
	}
	if recorded != "" && !version.IsVersionGreaterOrEqualThan(current, recorded) {
		return errors.Errorf("database schema version %s is newer than binary version %s", recorded, current)
	}
	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO system_info (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, schemaVersionKey, current); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
