package core

import (
	"sync"

	"github.com/dkeye/relay/internal/domain"
)

// Room is a threadsafe in-memory negotiation record.
// It is shared by the directory and every lookup that found it.
type Room struct {
	id string

	mu         sync.Mutex
	offer      domain.Offer
	candidates []domain.Candidate
}

func NewRoom(roomID string) *Room {
	return &Room{id: roomID}
}

// ID never changes after creation, so it is read without the lock.
func (r *Room) ID() string { return r.id }

func (r *Room) SetOffer(o domain.Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offer = o
}

func (r *Room) AppendCandidate(c domain.Candidate) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, c)
	return len(r.candidates)
}

func (r *Room) Snapshot() domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.Room{
		RoomID:     r.id,
		Offer:      r.offer,
		Candidates: r.candidates,
	}.Clone()
}

func (r *Room) info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		RoomID:     r.id,
		HasOffer:   r.offer != (domain.Offer{}),
		Candidates: len(r.candidates),
	}
}
