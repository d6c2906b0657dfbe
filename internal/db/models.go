// Package db provides SQLite persistence for attend sessions, transcript
// fragments, and answered queries.
package db

import "time"

// Session represents one daemon run.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Status    string
	CreatedAt time.Time
}

// Fragment is a persisted transcript fragment.
type Fragment struct {
	ID             string
	SessionID      string
	Text           string
	ProducedAt     time.Time
	SequenceNumber int
	CreatedAt      time.Time
}

// Exchange is one answered user query.
type Exchange struct {
	ID        string
	SessionID string
	Question  string
	Answer    string
	ModelID   string
	CreatedAt time.Time
}
