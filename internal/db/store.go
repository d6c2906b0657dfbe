package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides read-write access to the attend SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".attend", "attend.sqlite")
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id        TEXT PRIMARY KEY,
	startedAt REAL NOT NULL,
	endedAt   REAL,
	status    TEXT NOT NULL,
	createdAt REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS fragments (
	id             TEXT PRIMARY KEY,
	sessionId      TEXT NOT NULL REFERENCES sessions(id),
	text           TEXT NOT NULL,
	producedAt     REAL NOT NULL,
	sequenceNumber INTEGER NOT NULL,
	createdAt      REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fragments_session ON fragments(sessionId, sequenceNumber);
CREATE TABLE IF NOT EXISTS exchanges (
	id        TEXT PRIMARY KEY,
	sessionId TEXT NOT NULL REFERENCES sessions(id),
	question  TEXT NOT NULL,
	answer    TEXT NOT NULL,
	modelId   TEXT NOT NULL,
	createdAt REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(sessionId, createdAt);
`

// Open opens (creating if needed) the database with WAL journaling.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new active session and returns it.
func (s *Store) CreateSession() (Session, error) {
	now := time.Now()
	sess := Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		Status:    "active",
		CreatedAt: now,
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, startedAt, endedAt, status, createdAt)
		VALUES (?, ?, NULL, ?, ?)
	`, sess.ID, unixFloat(sess.StartedAt), sess.Status, unixFloat(sess.CreatedAt))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// EndSession marks a session ended.
func (s *Store) EndSession(sessionID string) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET endedAt = ?, status = 'ended' WHERE id = ?
	`, unixFloat(time.Now()), sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// LatestSession returns the most recent session regardless of status, or
// nil when the database is empty.
func (s *Store) LatestSession() (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, startedAt, endedAt, status, createdAt
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`)

	var sess Session
	var startedAt, createdAt float64
	var endedAt sql.NullFloat64

	if err := row.Scan(&sess.ID, &startedAt, &endedAt, &sess.Status, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.StartedAt = timeFromUnix(startedAt)
	sess.CreatedAt = timeFromUnix(createdAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// AppendFragment persists one transcript fragment.
func (s *Store) AppendFragment(sessionID, text string, producedAt time.Time, seq int) (Fragment, error) {
	frag := Fragment{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Text:           text,
		ProducedAt:     producedAt,
		SequenceNumber: seq,
		CreatedAt:      time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO fragments (id, sessionId, text, producedAt, sequenceNumber, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, frag.ID, frag.SessionID, frag.Text, unixFloat(frag.ProducedAt),
		frag.SequenceNumber, unixFloat(frag.CreatedAt))
	if err != nil {
		return Fragment{}, fmt.Errorf("insert fragment: %w", err)
	}
	return frag, nil
}

// RecentFragments returns up to limit fragments for a session in
// chronological order.
func (s *Store) RecentFragments(sessionID string, limit int) ([]Fragment, error) {
	rows, err := s.db.Query(`
		SELECT id, sessionId, text, producedAt, sequenceNumber, createdAt
		FROM (
			SELECT * FROM fragments
			WHERE sessionId = ?
			ORDER BY sequenceNumber DESC
			LIMIT ?
		)
		ORDER BY sequenceNumber ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var frags []Fragment
	for rows.Next() {
		var f Fragment
		var producedAt, createdAt float64
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Text, &producedAt,
			&f.SequenceNumber, &createdAt); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f.ProducedAt = timeFromUnix(producedAt)
		f.CreatedAt = timeFromUnix(createdAt)
		frags = append(frags, f)
	}
	return frags, rows.Err()
}

// RecordExchange persists one answered query.
func (s *Store) RecordExchange(sessionID, question, answer, modelID string) (Exchange, error) {
	ex := Exchange{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		ModelID:   modelID,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO exchanges (id, sessionId, question, answer, modelId, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ex.ID, ex.SessionID, ex.Question, ex.Answer, ex.ModelID, unixFloat(ex.CreatedAt))
	if err != nil {
		return Exchange{}, fmt.Errorf("insert exchange: %w", err)
	}
	return ex, nil
}

// ExchangesForSession returns all exchanges for a session, oldest first.
func (s *Store) ExchangesForSession(sessionID string) ([]Exchange, error) {
	rows, err := s.db.Query(`
		SELECT id, sessionId, question, answer, modelId, createdAt
		FROM exchanges
		WHERE sessionId = ?
		ORDER BY createdAt ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var ex Exchange
		var createdAt float64
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.Question, &ex.Answer,
			&ex.ModelID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.CreatedAt = timeFromUnix(createdAt)
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
