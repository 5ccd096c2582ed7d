package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JournalEntry records one issued state command and its outcome
type JournalEntry struct {
	ID        string
	Host      string
	Target    string
	Delta     map[string]any
	Outcome   string
	Error     string
	CreatedAt time.Time
}

// AppendCommand journals an issued command. A missing id gets a fresh
// uuid; the assigned id is returned.
func (s *Store) AppendCommand(e JournalEntry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	deltaJSON := []byte("{}")
	if e.Delta != nil {
		var err error
		deltaJSON, err = json.Marshal(e.Delta)
		if err != nil {
			return "", fmt.Errorf("failed to marshal delta: %w", err)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO command_journal (id, host, target, delta, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Host, e.Target, string(deltaJSON), e.Outcome, e.Error, time.Now().UTC().Unix())
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// RecentCommands returns the latest journal entries, newest first
func (s *Store) RecentCommands(limit int) ([]*JournalEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, host, target, delta, outcome, error, created_at
		FROM command_journal
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*JournalEntry
	for rows.Next() {
		var e JournalEntry
		var deltaJSON string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Host, &e.Target, &deltaJSON, &e.Outcome, &e.Error, &createdAt); err != nil {
			return nil, err
		}
		if deltaJSON != "" {
			if err := json.Unmarshal([]byte(deltaJSON), &e.Delta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal delta: %w", err)
			}
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes journal entries older than the retention window
// and returns how many went away
func (s *Store) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := s.db.Exec(`DELETE FROM command_journal WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
