package store

import (
	"context"
	"sync"
	"time"
)

// Memory is the default store: a process-local map. Records are
// deep-copied on the way in and out so callers can't alias live room
// state into the store.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*RoomRecord
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*RoomRecord)}
}

func (m *Memory) Get(_ context.Context, roomID string) (*RoomRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) Put(_ context.Context, rec *RoomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[rec.RoomID] = copyRecord(rec)
	return nil
}

func (m *Memory) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func (m *Memory) SweepExpired(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, rec := range m.rooms {
		if rec.UpdatedAt.Before(cutoff) {
			delete(m.rooms, id)
			n++
		}
	}
	return n, nil
}

func copyRecord(rec *RoomRecord) *RoomRecord {
	cp := *rec
	cp.Participants = make([]ParticipantRecord, len(rec.Participants))
	for i, p := range rec.Participants {
		cp.Participants[i] = p
		if p.Vote != nil {
			v := *p.Vote
			cp.Participants[i].Vote = &v
		}
	}
	return &cp
}
