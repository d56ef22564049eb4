// Package store persists the member registry, the team/misconduct audit
// logs and the board-message side table in a single SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	discord_id TEXT PRIMARY KEY,
	discord_username TEXT NOT NULL,
	discord_displayname TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'Active' CHECK (status IN ('Active', 'Inactive', 'Banned', 'Retired')),
	team TEXT NOT NULL DEFAULT 'Unassigned' CHECK (team IN ('Unassigned', 'Green Team', 'Chalk Team', 'Red Section', 'Grey Section', 'Black Section', 'Red Talon')),
	last_active DATE NOT NULL DEFAULT (date('now', 'localtime')),
	bohemia_id TEXT UNIQUE DEFAULT NULL
);

CREATE TABLE IF NOT EXISTS team_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	instigator_discord_id TEXT NOT NULL,
	target_discord_id TEXT NOT NULL,
	team TEXT NOT NULL CHECK (team IN ('Unassigned', 'Green Team', 'Chalk Team', 'Red Section', 'Grey Section', 'Black Section', 'Red Talon')),
	details TEXT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS misconduct_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	instigator_discord_id TEXT NOT NULL,
	target_discord_id TEXT NOT NULL,
	victim_discord_id TEXT,
	category TEXT NOT NULL,
	type TEXT NOT NULL,
	details TEXT NOT NULL,
	severity INT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS board_messages (
	board_key TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	message_id TEXT NOT NULL
);
`

// Store wraps the shared database handle. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids write-lock contention between synchronizers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
