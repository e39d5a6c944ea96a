// Package index builds, persists, and atomically publishes the semantic
// index over the Document Store.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// A generation is staged with current = 0 and becomes current in the same
// transaction that deletes every other generation.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS generations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	model       TEXT NOT NULL,
	dimension   INTEGER NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	built_at    DATETIME NOT NULL,
	current     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
	generation INTEGER NOT NULL REFERENCES generations(id) ON DELETE CASCADE,
	path       TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (generation, path)
);

CREATE TABLE IF NOT EXISTS chunks (
	generation INTEGER NOT NULL REFERENCES generations(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	source_id  TEXT NOT NULL,
	ordinal    INTEGER NOT NULL,
	text       TEXT NOT NULL,
	vector     BLOB NOT NULL,
	PRIMARY KEY (generation, position)
);
`

// DB wraps a sql.DB holding persisted index generations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
