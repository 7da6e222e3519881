// Package orch is the session coordinator: registration, presence and the
// call-establishment handshake across all live connections.
package orch

import (
	"errors"
	"time"

	"github.com/dkeye/Dialtone/internal/app"
	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/dkeye/Dialtone/internal/metrics"
	"github.com/dkeye/Dialtone/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// RejectBusy answers call_failed when the target is already in a call.
	RejectBusy bool
	// NotifyPeerOnDisconnect tells the surviving party when its counterpart drops.
	NotifyPeerOnDisconnect bool
	// CallTimeout bounds how long an offer may ring. Zero disables it.
	CallTimeout time.Duration
}

type Orchestrator struct {
	Registry  *app.Registry
	Directory *app.Directory
	Calls     *app.CallTable
	Policy    app.Policy
	Metrics   *metrics.Metrics
	Options   Options
}

// send encodes v and hands it to cid without waiting. Delivery failures are
// swallowed; only backpressure is escalated to the policy.
func (o *Orchestrator) send(cid core.ConnID, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode envelope")
		return
	}
	err = o.Registry.Deliver(cid, b)
	if err == nil {
		return
	}
	o.Metrics.Dropped()
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Err(err).Str("module", "orch").Str("cid", string(cid)).Msg("delivery dropped")
		return
	}
	o.onBackpressure(cid)
}

func (o *Orchestrator) onBackpressure(cid core.ConnID) {
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(cid) {
	case app.KickConnection:
		log.Warn().Str("module", "orch").Str("cid", string(cid)).Msg("kicking slow connection")
		o.Registry.Cancel(cid)
	case app.DropFrame, app.NoAction:
	}
}

// sendTo resolves addr and delivers; an unknown address is a silent drop.
func (o *Orchestrator) sendTo(addr domain.Address, v any) bool {
	cid, err := o.Directory.Resolve(addr)
	if err != nil {
		return false
	}
	o.send(cid, v)
	return true
}

// broadcast fans v out to every live connection except skip.
func (o *Orchestrator) broadcast(skip core.ConnID, v any) {
	for _, snap := range o.Registry.Snapshot() {
		if snap.CID == skip {
			continue
		}
		o.send(snap.CID, v)
	}
}

// Fail reports err to the originating connection as a failure envelope of kind.
func (o *Orchestrator) Fail(cid core.ConnID, kind protocol.Kind, err error) {
	code := protocol.CodeOf(err)
	o.Metrics.Failure(code)
	log.Info().Err(err).Str("module", "orch").Str("cid", string(cid)).Str("code", code).Msg(string(kind))
	o.send(cid, protocol.NewFailure(kind, err))
}

func (o *Orchestrator) Ping(cid core.ConnID) {
	o.send(cid, protocol.NewPong())
}

func (o *Orchestrator) observe() {
	if o.Metrics == nil {
		return
	}
	o.Metrics.Snapshot(o.Registry.Len(), o.Directory.Len(), len(o.Directory.ListPublic()), o.Calls.Len())
}
