package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("room record not found")

// Store is the pluggable durability layer behind the room actors. The
// in-memory room state is the source of truth for the life of the
// process; the store is written after each successful mutation and is
// never a second writer.
type Store interface {
	Get(ctx context.Context, roomID string) (*RoomRecord, error)
	Put(ctx context.Context, rec *RoomRecord) error
	Delete(ctx context.Context, roomID string) error

	// SweepExpired deletes rooms whose UpdatedAt is older than cutoff,
	// cascading to their participants, and reports how many went.
	SweepExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type RoomRecord struct {
	RoomID        string
	HostID        string
	Topic         string
	VotesRevealed bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Participants  []ParticipantRecord
}

type ParticipantRecord struct {
	UserID   string
	Name     string
	IsHost   bool
	Vote     *string
	HasVoted bool
	JoinedAt time.Time
}
