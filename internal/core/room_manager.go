package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room does not exist")
)

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	RoomID     string `json:"room_id"`
	HasOffer   bool   `json:"has_offer"`
	Candidates int    `json:"candidates"`
}

// RoomDirectory maps a creating connection to its room.
// Lookups by room id scan entries in insertion order.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.ConnID]*Room
	order []domain.ConnID
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[domain.ConnID]*Room)}
}

// CreateRoom never overwrites: a creator owns at most one room, and a room
// id already present in the directory is reported as a conflict as well.
func (d *RoomDirectory) CreateRoom(creator domain.ConnID, roomID string) (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.rooms[creator]; ok {
		return nil, fmt.Errorf("%w: %q owned by %s", ErrRoomExists, existing.ID(), creator)
	}
	if existing := d.scanLocked(roomID); existing != nil {
		return nil, fmt.Errorf("%w: %q", ErrRoomExists, roomID)
	}
	room := NewRoom(roomID)
	d.rooms[creator] = room
	d.order = append(d.order, creator)
	log.Info().Str("module", "core.directory").Str("sid", string(creator)).Str("room_id", roomID).Int("rooms", len(d.rooms)).Msg("room created")
	return room, nil
}

// FindRoom returns the first room whose id matches.
func (d *RoomDirectory) FindRoom(roomID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room := d.scanLocked(roomID)
	return room, room != nil
}

func (d *RoomDirectory) scanLocked(roomID string) *Room {
	for _, creator := range d.order {
		if room := d.rooms[creator]; room.ID() == roomID {
			return room
		}
	}
	return nil
}

// RemoveRoom drops the room created by creator. Absent keys are a no-op.
func (d *RoomDirectory) RemoveRoom(creator domain.ConnID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[creator]
	if !ok {
		return false
	}
	delete(d.rooms, creator)
	if i := slices.Index(d.order, creator); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
	log.Info().Str("module", "core.directory").Str("sid", string(creator)).Str("room_id", room.ID()).Int("rooms", len(d.rooms)).Msg("room removed")
	return true
}

// RoomOf returns the room created by creator.
func (d *RoomDirectory) RoomOf(creator domain.ConnID) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[creator]
	return room, ok
}

func (d *RoomDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *RoomDirectory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Map(d.order, func(creator domain.ConnID, _ int) RoomInfo {
		return d.rooms[creator].info()
	})
}
