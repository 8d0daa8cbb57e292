package store

import (
	"context"
	"fmt"
)

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT 'Bearer',
	expiry        DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS emails (
	account         TEXT NOT NULL,
	id              TEXT NOT NULL,
	thread_id       TEXT NOT NULL DEFAULT '',
	subject         TEXT NOT NULL DEFAULT '',
	sender          TEXT NOT NULL DEFAULT '',
	date            TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL DEFAULT '',
	snippet         TEXT NOT NULL DEFAULT '',
	labels          TEXT NOT NULL DEFAULT '[]',
	is_read         INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	is_important    INTEGER NOT NULL DEFAULT 0 CHECK(is_important IN (0, 1)),
	has_attachments INTEGER NOT NULL DEFAULT 0 CHECK(has_attachments IN (0, 1)),
	position        INTEGER NOT NULL DEFAULT 0,
	fetched_at      DATETIME NOT NULL,
	PRIMARY KEY (account, id)
);

CREATE INDEX IF NOT EXISTS idx_emails_account_position ON emails(account, position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS analyses (
	account             TEXT NOT NULL,
	email_id            TEXT NOT NULL,
	summary             TEXT NOT NULL DEFAULT '',
	sentiment           TEXT NOT NULL DEFAULT '',
	urgency             TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT '',
	recommended_actions TEXT NOT NULL DEFAULT '[]',
	created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (account, email_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// schemaVersion returns the highest applied migration, 0 on a new database.
func (s *SQLiteStore) schemaVersion(ctx context.Context) (int, error) {
	var tables int
	err := s.db.GetContext(ctx, &tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return 0, fmt.Errorf("checking schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}

	var version int
	if err := s.db.GetContext(ctx, &version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate applies the outstanding migrations in order, each in its own
// transaction so a failed step leaves the previous version intact.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}
	return nil
}
