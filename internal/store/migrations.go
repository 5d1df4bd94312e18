package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a schema migration step. Versions are tracked in
// PRAGMA user_version.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: drops and drop_events tables and indexes",
		SQL: `
CREATE TABLE IF NOT EXISTS drops (
  id TEXT PRIMARY KEY,
  codename TEXT NOT NULL UNIQUE,
  created_at TEXT NOT NULL,
  ttl_seconds INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  password TEXT NOT NULL,
  password_hint TEXT,
  max_retrievals INTEGER NOT NULL DEFAULT 0,
  retrieval_count INTEGER NOT NULL DEFAULT 0,
  burn_after_reading INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  carrier_key TEXT NOT NULL,
  carrier_type TEXT NOT NULL,
  carrier_width INTEGER NOT NULL,
  carrier_height INTEGER NOT NULL,
  bits_per_channel INTEGER NOT NULL,
  payload_size INTEGER NOT NULL,
  encrypted INTEGER NOT NULL DEFAULT 1,
  original_filename TEXT,
  mime_type TEXT,
  tags TEXT,
  first_retrieved_at TEXT,
  last_retrieved_at TEXT
);

CREATE TABLE IF NOT EXISTS drop_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  drop_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  ip_address TEXT,
  user_agent TEXT,
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drops_expires_at ON drops(expires_at);
CREATE INDEX IF NOT EXISTS idx_drops_status ON drops(status);
CREATE INDEX IF NOT EXISTS idx_drop_events_drop ON drop_events(drop_id);
`,
	},
}

func runMigrations(db *sql.DB) error {
	current, err := currentVersion(db)
	if err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, m := range ordered {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: set version: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func currentVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
