package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/dkeye/Dialtone/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Connect tracks a freshly accepted transport connection.
func (o *Orchestrator) Connect(cid core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Register(cid, sig, cancel)
	o.observe()
}

func (o *Orchestrator) Register(cid core.ConnID, raw string) {
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		o.Fail(cid, protocol.KindRegistrationFailed, err)
		return
	}
	if held, ok := o.Registry.AddressOf(cid); ok {
		o.Fail(cid, protocol.KindRegistrationFailed, fmt.Errorf("holding %q: %w", held, domain.ErrAlreadyRegistered))
		return
	}
	if err := o.Directory.Claim(addr, cid); err != nil {
		o.Fail(cid, protocol.KindRegistrationFailed, err)
		return
	}
	if !o.Registry.BindAddress(cid, addr) {
		// Connection closed between claim and bind.
		o.Directory.Release(addr)
		return
	}

	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("address", string(addr)).Msg("registered")
	o.send(cid, protocol.NewRegistrationSuccess(addr))
	o.broadcast(cid, protocol.NewUserStatusChange(addr, true))
	o.observe()
}

func (o *Orchestrator) SetPublic(cid core.ConnID, visible bool) {
	addr, ok := o.Registry.AddressOf(cid)
	if !ok {
		o.Fail(cid, protocol.KindError, domain.ErrNotRegistered)
		return
	}
	if err := o.Directory.SetPublic(addr, visible); err != nil {
		o.Fail(cid, protocol.KindError, err)
		return
	}
	o.send(cid, protocol.NewPublicStatusUpdated(visible))
	o.observe()
}

// ListPublic replies with the discovery set; the caller's own address is not filtered.
func (o *Orchestrator) ListPublic(cid core.ConnID) {
	o.send(cid, protocol.NewPublicListings(o.Directory.ListPublic()))
}

// PublicListings is the same snapshot for non-socket callers.
func (o *Orchestrator) PublicListings() []domain.Address {
	return o.Directory.ListPublic()
}

// Disconnect releases everything the connection owned. It is safe to call
// more than once.
func (o *Orchestrator) Disconnect(cid core.ConnID) {
	addr, ok := o.Registry.Remove(cid)
	if !ok {
		o.observe()
		return
	}

	// Drop sessions before releasing addr; a new owner's calls must survive.
	dropped := o.Calls.DropParty(addr)
	o.Directory.Release(addr)
	o.broadcast(cid, protocol.NewUserStatusChange(addr, false))

	for _, s := range dropped {
		o.Metrics.CallOutcome("disconnected")
		if !o.Options.NotifyPeerOnDisconnect {
			continue
		}
		peer := s.Counterpart(addr)
		if s.Phase == domain.PhaseOffered && s.Target == addr {
			o.failAddress(peer, protocol.KindCallFailed, domain.ErrPeerGone)
			continue
		}
		o.sendTo(peer, protocol.NewCallEnded(addr))
	}

	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("address", string(addr)).Int("calls", len(dropped)).Msg("disconnected")
	o.observe()
}

func (o *Orchestrator) failAddress(addr domain.Address, kind protocol.Kind, err error) {
	cid, rerr := o.Directory.Resolve(addr)
	if rerr != nil {
		return
	}
	o.Fail(cid, kind, err)
}
