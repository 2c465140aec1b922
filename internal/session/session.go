package session

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("room or participant not found")
var ErrForbidden = errors.New("host privilege required")
var ErrInvalidVote = errors.New("vote not in deck")
var ErrInvalidArgument = errors.New("invalid argument")

// MaxTopicLen bounds SetTopic input. Longer input is rejected, not
// clamped, so the client sees the failure.
const MaxTopicLen = 200

const defaultHostName = "Host"
const defaultGuestName = "Guest"

type Participant struct {
	UserID      string
	Name        string
	IsHost      bool
	Vote        *string
	HasVoted    bool
	ConnectedAt time.Time

	// RemoveAfter is the grace deadline set on disconnect. Zero while
	// the participant is connected; rejoin clears it.
	RemoveAfter time.Time
}

// Room is the authoritative state for one session. It is not safe for
// concurrent use: exactly one room actor owns it and serializes every
// command (see internal/room).
type Room struct {
	ID             string
	HostID         string
	Topic          string
	VotesRevealed  bool
	Participants   *Registry
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// NewRoom allocates a room with the caller as host and sole
// participant. Allocation never fails; an empty host name gets a
// default.
func NewRoom(hostName string, now time.Time) *Room {
	if hostName == "" {
		hostName = defaultHostName
	}
	reg := NewRegistry()
	host := &Participant{
		UserID:      reg.NewID(),
		Name:        hostName,
		IsHost:      true,
		ConnectedAt: now,
	}
	reg.Add(host)
	return &Room{
		ID:             uuid.NewString(),
		HostID:         host.UserID,
		Participants:   reg,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Join adds a new participant with no vote. The registry issues the
// userID, so concurrent joins (already serialized by the room actor)
// can never collide.
func (r *Room) Join(name string, now time.Time) *Participant {
	if name == "" {
		name = defaultGuestName
	}
	p := &Participant{
		UserID:      r.Participants.NewID(),
		Name:        name,
		ConnectedAt: now,
	}
	r.Participants.Add(p)
	r.touch(now)
	return p
}

// Rejoin reclaims a previously issued userID, clearing any pending
// disconnect deadline. The prior vote survives. A userID that has
// already been swept is ErrNotFound; the client must treat that as a
// dead session, not join again silently.
func (r *Room) Rejoin(userID string, now time.Time) (*Participant, error) {
	p, ok := r.Participants.Get(userID)
	if !ok {
		return nil, ErrNotFound
	}
	p.RemoveAfter = time.Time{}
	r.touch(now)
	return p, nil
}

// SetVote records a vote. Re-casting is always allowed, including
// after reveal: reveal gates visibility, not mutation.
func (r *Room) SetVote(userID, value string, now time.Time) error {
	p, ok := r.Participants.Get(userID)
	if !ok {
		return ErrNotFound
	}
	if !ValidVote(value) {
		return ErrInvalidVote
	}
	v := value
	p.Vote = &v
	p.HasVoted = true
	r.touch(now)
	return nil
}

// Reveal exposes votes. Host only; idempotent.
func (r *Room) Reveal(callerID string, now time.Time) error {
	if err := r.requireHost(callerID); err != nil {
		return err
	}
	r.VotesRevealed = true
	r.touch(now)
	return nil
}

// Reset hides votes and clears every participant's vote; participants
// and topic stay.
func (r *Room) Reset(callerID string, now time.Time) error {
	if err := r.requireHost(callerID); err != nil {
		return err
	}
	r.VotesRevealed = false
	for _, p := range r.Participants.All() {
		p.Vote = nil
		p.HasVoted = false
	}
	r.touch(now)
	return nil
}

func (r *Room) SetTopic(callerID, topic string, now time.Time) error {
	if err := r.requireHost(callerID); err != nil {
		return err
	}
	if utf8.RuneCountInString(topic) > MaxTopicLen {
		return ErrInvalidArgument
	}
	r.Topic = topic
	r.touch(now)
	return nil
}

// Remove drops a participant unconditionally. A leaving host is not
// replaced: host-only commands fail Forbidden until the host rejoins.
func (r *Room) Remove(userID string, now time.Time) bool {
	if !r.Participants.Remove(userID) {
		return false
	}
	r.touch(now)
	return true
}

// MarkDisconnected starts the grace window for a participant. The
// entry survives until removeAfter so one legitimate rejoin can
// reclaim it.
func (r *Room) MarkDisconnected(userID string, removeAfter time.Time) {
	if p, ok := r.Participants.Get(userID); ok {
		p.RemoveAfter = removeAfter
	}
}

// SweepDisconnected removes participants whose grace deadline has
// passed and returns their IDs. A non-empty result counts as activity
// so the idle clock restarts from the last removal.
func (r *Room) SweepDisconnected(now time.Time) []string {
	var removed []string
	for _, p := range r.Participants.All() {
		if !p.RemoveAfter.IsZero() && !now.Before(p.RemoveAfter) {
			r.Participants.Remove(p.UserID)
			removed = append(removed, p.UserID)
		}
	}
	if len(removed) > 0 {
		r.touch(now)
	}
	return removed
}

func (r *Room) requireHost(callerID string) error {
	if callerID != r.HostID {
		return ErrForbidden
	}
	return nil
}

func (r *Room) touch(now time.Time) {
	r.LastActivityAt = now
}
