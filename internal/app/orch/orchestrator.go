package orch

import (
	"fmt"

	"github.com/dkeye/relay/internal/app"
	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator owns the shared state of the relay and implements the
// signaling operations on top of it.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *core.RoomDirectory
}

func New(reg *app.Registry, rooms *core.RoomDirectory) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms}
}

// broadcast sends one tagged payload to every open connection.
// Delivery is global, not restricted to the peers of a room.
func (o *Orchestrator) broadcast(msg domain.Outbound) error {
	f, err := core.EncodeFrame(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.DataType, err)
	}
	sent, err := o.Registry.Broadcast(f)
	if err != nil {
		return err
	}
	log.Debug().Str("module", "orch").Str("data_type", msg.DataType).Int("sent_to", sent).Msg("broadcast")
	return nil
}

// Close forgets a connection: its room (if it created one) and its sink.
// The two removals are not atomic with respect to each other.
func (o *Orchestrator) Close(sid domain.ConnID) {
	var roomID string
	if room, ok := o.Rooms.RoomOf(sid); ok {
		roomID = room.ID()
	}
	removedRoom := o.Rooms.RemoveRoom(sid)
	removedSink := o.Registry.Unregister(sid)
	log.Info().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("room_id", roomID).
		Bool("room_removed", removedRoom).
		Bool("sink_removed", removedSink).
		Int("rooms", o.Rooms.Count()).
		Int("peers", o.Registry.Count()).
		Msg("connection closed")
}
