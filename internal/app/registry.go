package app

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry tracks the outbound sink of every open connection.
// An entry exists iff the connection may receive broadcasts.
type Registry struct {
	mu    sync.RWMutex
	sinks map[domain.ConnID]core.SignalConnection
	order []domain.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[domain.ConnID]core.SignalConnection),
	}
}

// Register inserts or replaces the sink for sid. A replaced sink keeps its
// position in broadcast order.
func (r *Registry) Register(sid domain.ConnID, sink core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sinks[sid]; !ok {
		r.order = append(r.order, sid)
	}
	r.sinks[sid] = sink
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("peers", len(r.sinks)).Msg("registered sink")
}

func (r *Registry) Unregister(sid domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sinks[sid]; !ok {
		return false
	}
	delete(r.sinks, sid)
	if i := slices.Index(r.order, sid); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("peers", len(r.sinks)).Msg("unregistered sink")
	return true
}

func (r *Registry) Has(sid domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sinks[sid]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// Broadcast delivers f to every registered sink in registration order,
// waiting for each send. It stops at the first failure; sent is the number
// of sinks that received f before that.
func (r *Registry) Broadcast(f core.Frame) (sent int, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sid := range r.order {
		if err := r.sinks[sid].Send(f); err != nil {
			log.Error().Err(err).Str("module", "app.registry").Str("sid", string(sid)).Int("sent_to", sent).Msg("broadcast aborted")
			return sent, fmt.Errorf("deliver to %s: %w", sid, err)
		}
		sent++
	}
	log.Debug().Str("module", "app.registry").Int("sent_to", sent).Msg("broadcast result")
	return sent, nil
}
