package orch

import (
	"fmt"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Every operation below takes the room found for env.RoomID (nil if none).
// ErrRoomNotFound and ErrRoomExists are diagnostics: nothing is mutated and
// the caller only logs them.

func (o *Orchestrator) StoreRoom(room *core.Room, env domain.Envelope, creator domain.ConnID) error {
	if room != nil {
		return fmt.Errorf("%w: %q", core.ErrRoomExists, room.ID())
	}
	if _, err := o.Rooms.CreateRoom(creator, env.RoomID); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) StoreOffer(room *core.Room, env domain.Envelope) error {
	if room == nil {
		return fmt.Errorf("%w: %q", core.ErrRoomNotFound, env.RoomID)
	}
	if webrtc.NewSDPType(env.Offer.Type) == webrtc.SDPTypeUnknown {
		log.Warn().Str("module", "orch").Str("room_id", room.ID()).Str("type", env.Offer.Type).Msg("offer with unknown sdp type")
	}
	room.SetOffer(env.Offer)
	log.Info().Str("module", "orch").Str("room_id", room.ID()).Int("sdp_len", len(env.Offer.SDP)).Msg("offer stored")
	return nil
}

func (o *Orchestrator) StoreCandidate(room *core.Room, env domain.Envelope) error {
	if room == nil {
		return fmt.Errorf("%w: %q", core.ErrRoomNotFound, env.RoomID)
	}
	n := room.AppendCandidate(env.Candidate)
	log.Info().Str("module", "orch").Str("room_id", room.ID()).Int("candidates", n).Msg("candidate stored")
	return nil
}

func (o *Orchestrator) SendAnswer(room *core.Room, env domain.Envelope) error {
	if room == nil {
		return fmt.Errorf("%w: %q", core.ErrRoomNotFound, env.RoomID)
	}
	if err := o.broadcast(domain.AnswerMessage(env.Answer)); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	return nil
}

func (o *Orchestrator) SendCandidate(room *core.Room, env domain.Envelope) error {
	if room == nil {
		return fmt.Errorf("%w: %q", core.ErrRoomNotFound, env.RoomID)
	}
	if err := o.broadcast(domain.CandidateMessage(env.Candidate)); err != nil {
		return fmt.Errorf("send candidate: %w", err)
	}
	return nil
}

// JoinCall replays the stored negotiation: the offer first, then every
// candidate in arrival order.
func (o *Orchestrator) JoinCall(room *core.Room, env domain.Envelope) error {
	if room == nil {
		return fmt.Errorf("%w: %q", core.ErrRoomNotFound, env.RoomID)
	}
	snap := room.Snapshot()
	if err := o.broadcast(domain.OfferMessage(snap.Offer)); err != nil {
		return fmt.Errorf("join call offer: %w", err)
	}
	for i, c := range snap.Candidates {
		if err := o.broadcast(domain.CandidateMessage(c)); err != nil {
			return fmt.Errorf("join call candidate %d: %w", i, err)
		}
	}
	log.Info().Str("module", "orch").Str("room_id", snap.RoomID).Int("candidates", len(snap.Candidates)).Msg("negotiation replayed")
	return nil
}
