package session

import (
	"slices"

	"github.com/google/uuid"
)

// Registry holds a room's participants with O(1) lookup and stable
// insertion-order iteration, so participant lists render in join order
// instead of reshuffling as votes arrive. It is also the sole issuer
// of userIDs within its room.
type Registry struct {
	order []string
	byID  map[string]*Participant
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Participant)}
}

func (r *Registry) NewID() string {
	return uuid.NewString()
}

func (r *Registry) Add(p *Participant) {
	if _, exists := r.byID[p.UserID]; !exists {
		r.order = append(r.order, p.UserID)
	}
	r.byID[p.UserID] = p
}

func (r *Registry) Get(id string) (*Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *Registry) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return true
}

func (r *Registry) Len() int { return len(r.byID) }

// All returns participants in insertion order. The returned slice is
// fresh but the pointers are live room state.
func (r *Registry) All() []*Participant {
	out := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
