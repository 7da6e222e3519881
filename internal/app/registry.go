package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Address     domain.Address
	Signal      core.SignalConnection
	Cancel      context.CancelFunc
	ConnectedAt time.Time
}

// Registry is the connection registry: every live connection, its optional
// bound address and its output handle.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
	}
}

// Register is an idempotent insert; re-registering keeps a bound address.
func (r *Registry) Register(cid core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		e.Signal = sig
		e.Cancel = cancel
		return
	}
	r.conns[cid] = &connEntry{Signal: sig, Cancel: cancel, ConnectedAt: time.Now()}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("registered connection")
}

// BindAddress records addr for cid. It reports false when the connection is
// already gone, in which case the caller owns releasing the claim.
func (r *Registry) BindAddress(cid core.ConnID, addr domain.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return false
	}
	e.Address = addr
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("address", string(addr)).Msg("bound address")
	return true
}

func (r *Registry) AddressOf(cid core.ConnID) (domain.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.Address == "" {
		return "", false
	}
	return e.Address, true
}

// Deliver hands a frame to the connection's output channel without waiting.
func (r *Registry) Deliver(cid core.ConnID, f core.Frame) error {
	r.mu.RLock()
	e, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return core.ErrConnectionGone
	}
	return e.Signal.TrySend(f)
}

// Remove forgets the connection and returns the address it held, if any.
func (r *Registry) Remove(cid core.ConnID) (domain.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return "", false
	}
	delete(r.conns, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("address", string(e.Address)).Msg("removed connection")
	return e.Address, e.Address != ""
}

type regSnap struct {
	CID     core.ConnID
	Address domain.Address
	Signal  core.SignalConnection
}

// Snapshot returns every live connection at this instant.
func (r *Registry) Snapshot() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.conns))
	for cid, e := range r.conns {
		out = append(out, regSnap{CID: cid, Address: e.Address, Signal: e.Signal})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Cancel stops the connection's pumps; the read side then runs disconnect cleanup.
func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled connection")
	return true
}
