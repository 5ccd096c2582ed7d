// Package store persists CLI-side state: which bridges are known, their
// credentials, and a journal of issued commands. The session type itself
// stays memory-only; this is caller-side bookkeeping.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database holding the bridge registry and the
// command journal
type Store struct {
	db *sql.DB
}

// Open opens the store at path and initializes the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bridges (
			host TEXT PRIMARY KEY,
			bridge_id TEXT,
			username TEXT,
			last_seen INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create bridges table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS command_journal (
			id TEXT PRIMARY KEY,
			host TEXT NOT NULL,
			target TEXT NOT NULL,
			delta TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journal_created ON command_journal(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create command_journal table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Bridge is one registered bridge
type Bridge struct {
	Host     string
	BridgeID string
	Username string
	LastSeen time.Time
}

// SaveBridge upserts a discovered bridge, refreshing last_seen and keeping
// any stored credential
func (s *Store) SaveBridge(host, bridgeID string) error {
	_, err := s.db.Exec(`
		INSERT INTO bridges (host, bridge_id, username, last_seen) VALUES (?, ?, '', ?)
		ON CONFLICT(host) DO UPDATE SET bridge_id = excluded.bridge_id, last_seen = excluded.last_seen
	`, host, bridgeID, time.Now().UTC().Unix())
	return err
}

// SetUsername stores the credential for a bridge, inserting the record if
// discovery never saw the host
func (s *Store) SetUsername(host, username string) error {
	_, err := s.db.Exec(`
		INSERT INTO bridges (host, bridge_id, username, last_seen) VALUES (?, '', ?, ?)
		ON CONFLICT(host) DO UPDATE SET username = excluded.username, last_seen = excluded.last_seen
	`, host, username, time.Now().UTC().Unix())
	return err
}

// Bridge returns one bridge by host, nil when unknown
func (s *Store) Bridge(host string) (*Bridge, error) {
	var b Bridge
	var lastSeen int64
	err := s.db.QueryRow(`
		SELECT host, bridge_id, username, last_seen FROM bridges WHERE host = ?
	`, host).Scan(&b.Host, &b.BridgeID, &b.Username, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.LastSeen = time.Unix(lastSeen, 0).UTC()
	return &b, nil
}

// ListBridges returns all known bridges, most recently seen first
func (s *Store) ListBridges() ([]*Bridge, error) {
	rows, err := s.db.Query(`
		SELECT host, bridge_id, username, last_seen FROM bridges ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Bridge
	for rows.Next() {
		var b Bridge
		var lastSeen int64
		if err := rows.Scan(&b.Host, &b.BridgeID, &b.Username, &lastSeen); err != nil {
			return nil, err
		}
		b.LastSeen = time.Unix(lastSeen, 0).UTC()
		out = append(out, &b)
	}
	return out, rows.Err()
}
