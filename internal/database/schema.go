package database

import (
	"database/sql"
	"fmt"
)

// Versioned schema bootstrap. Statements are applied in order and tracked in
// schema_migrations so a restart is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uuid       TEXT PRIMARY KEY,
		username   TEXT NOT NULL,
		friends    TEXT NOT NULL DEFAULT '[]',
		blocked    TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		last_seen  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friend_invites (
		id         TEXT PRIMARY KEY,
		from_uuid  TEXT NOT NULL,
		to_uuid    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(from_uuid, to_uuid)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_friend_invites_to ON friend_invites(to_uuid)`,
	`CREATE INDEX IF NOT EXISTS idx_friend_invites_from ON friend_invites(from_uuid)`,
}

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}
