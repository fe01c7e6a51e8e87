package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one row of the session-history journal (SPEC_FULL.md §D.2): the
// UI's "recent sessions" surface, generalized across all three transports
// rather than hotspot-only as the original source's SSID memory was.
type Entry struct {
	SessionID  string
	Transport  string
	Role       string
	PeerStatus string
	Reason     string
	StartedAt  time.Time
	EndedAt    time.Time
}

// History is a pure-Go, cgo-free on-disk journal of past sessions.
type History struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS session_history (
	session_id   TEXT PRIMARY KEY,
	transport    TEXT NOT NULL,
	role         TEXT NOT NULL,
	peer_status  TEXT,
	reason       TEXT,
	started_at   INTEGER NOT NULL,
	ended_at     INTEGER NOT NULL
)`

// OpenHistory opens (creating if needed) the sqlite database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts or replaces one completed session's journal row.
func (h *History) Record(e Entry) error {
	_, err := h.db.Exec(
		`INSERT OR REPLACE INTO session_history
			(session_id, transport, role, peer_status, reason, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Transport, e.Role, e.PeerStatus, e.Reason,
		e.StartedAt.Unix(), e.EndedAt.Unix(),
	)
	return err
}

// Recent returns the most recent limit entries, newest first.
func (h *History) Recent(limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT session_id, transport, role, peer_status, reason, started_at, ended_at
		 FROM session_history ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt, endedAt int64
		if err := rows.Scan(&e.SessionID, &e.Transport, &e.Role, &e.PeerStatus, &e.Reason, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		e.StartedAt = time.Unix(startedAt, 0)
		e.EndedAt = time.Unix(endedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}
