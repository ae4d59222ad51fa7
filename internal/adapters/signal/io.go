package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrUnknownType = errors.New("unknown data type")

const pingWriteWait = 10 * time.Second

func (ctl *SignalWSController) keepalive(ctx context.Context, sid domain.ConnID, c *WsSignalConn) {
	var tick <-chan time.Time
	if ctl.cfg.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.cfg.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			// Unblocks a pending ReadMessage on shutdown.
			c.Close()
			return
		case <-tick:
			if err := c.Ping(time.Now().Add(pingWriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("keepalive ping failed")
				c.Close()
				return
			}
		}
	}
}

// readPump is the only reader of c. Any read error, including a close
// frame, ends the loop; cleanup runs exactly once on the way out.
func (ctl *SignalWSController) readPump(ctx context.Context, sid domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Close(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				switch {
				case errors.As(err, &ce):
					log.Info().Str("module", "signal").Str("sid", string(sid)).Int("code", ce.Code).Msg("peer closed")
				case ctx.Err() != nil:
					log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
				default:
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(sid, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid domain.ConnID, data []byte) {
	err := ctl.Dispatch(sid, data)
	switch {
	case err == nil:
	case errors.Is(err, ErrDecode),
		errors.Is(err, ErrUnknownType),
		errors.Is(err, core.ErrRoomNotFound),
		errors.Is(err, core.ErrRoomExists):
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("signal dropped")
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("signal delivery failed")
	}
}

// Dispatch decodes one inbound frame, looks its room up once and runs the
// matching operation. Nothing is ever written back to the sender.
func (ctl *SignalWSController) Dispatch(sid domain.ConnID, data []byte) error {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return err
	}
	room, _ := ctl.Orch.Rooms.FindRoom(env.RoomID)

	switch env.DataType {
	case domain.StoreRoom:
		return ctl.Orch.StoreRoom(room, env, sid)
	case domain.StoreOffer:
		return ctl.Orch.StoreOffer(room, env)
	case domain.StoreCandidate:
		return ctl.Orch.StoreCandidate(room, env)
	case domain.SendAnswer:
		return ctl.Orch.SendAnswer(room, env)
	case domain.SendCandidate:
		return ctl.Orch.SendCandidate(room, env)
	case domain.JoinCall:
		return ctl.Orch.JoinCall(room, env)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, env.DataType)
	}
}
