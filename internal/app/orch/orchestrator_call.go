package orch

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/dkeye/Dialtone/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) CallRequest(cid core.ConnID, target string, offer json.RawMessage) {
	from, ok := o.Registry.AddressOf(cid)
	if !ok {
		o.Fail(cid, protocol.KindError, domain.ErrNotRegistered)
		return
	}
	to := domain.Address(target)
	if to == from {
		o.Fail(cid, protocol.KindCallFailed, domain.ErrSelfCall)
		return
	}
	tcid, err := o.Directory.Resolve(to)
	if err != nil {
		o.Fail(cid, protocol.KindCallFailed, err)
		return
	}
	if o.Options.RejectBusy && o.Calls.Busy(to, from) {
		o.Fail(cid, protocol.KindCallFailed, domain.ErrBusy)
		return
	}

	s := o.Calls.Offer(from, to)
	if !o.bound(cid, from) || !o.bound(tcid, to) {
		// A party disconnected after its cleanup already ran.
		o.Calls.Withdraw(s.ID, from, to)
		o.Fail(cid, protocol.KindCallFailed, domain.ErrAddressNotFound)
		return
	}
	o.send(tcid, protocol.NewIncomingCall(from, offer))
	log.Info().Str("module", "orch").Str("call", string(s.ID)).Str("from", string(from)).Str("to", string(to)).Msg("call offered")

	if o.Options.CallTimeout > 0 {
		time.AfterFunc(o.Options.CallTimeout, func() { o.expire(s) })
	}
	o.observe()
}

func (o *Orchestrator) CallResponse(cid core.ConnID, caller string, accepted bool, answer json.RawMessage) {
	by, ok := o.Registry.AddressOf(cid)
	if !ok {
		o.Fail(cid, protocol.KindError, domain.ErrNotRegistered)
		return
	}
	callerAddr := domain.Address(caller)
	ccid, err := o.Directory.Resolve(callerAddr)
	if err != nil {
		// Any local session is reclaimed by the caller's disconnect cleanup.
		o.Fail(cid, protocol.KindError, domain.ErrCallerOffline)
		return
	}

	if s, found := o.Calls.Answer(callerAddr, by, accepted); found {
		o.Metrics.CallOutcome(s.Phase.String())
		log.Info().Str("module", "orch").Str("call", string(s.ID)).Str("phase", s.Phase.String()).Msg("call answered")
	}
	o.send(ccid, protocol.NewCallAnswered(by, accepted, answer))
	o.observe()
}

// IceCandidate is relay only; candidates for a vanished peer are dropped.
func (o *Orchestrator) IceCandidate(cid core.ConnID, target string, candidate json.RawMessage) {
	from, ok := o.Registry.AddressOf(cid)
	if !ok {
		log.Debug().Str("module", "orch").Str("cid", string(cid)).Msg("candidate from unregistered connection dropped")
		return
	}
	o.sendTo(domain.Address(target), protocol.NewRelayedCandidate(from, candidate))
}

// EndCall tears down any session with target and relays call_ended whenever
// target is online, so a hangup reaches the peer even after the session
// expired or was never recorded. An offline target is a silent no-op.
func (o *Orchestrator) EndCall(cid core.ConnID, target string) {
	by, ok := o.Registry.AddressOf(cid)
	if !ok {
		return
	}
	to := domain.Address(target)
	if s, existed := o.Calls.End(by, to); existed {
		o.Metrics.CallOutcome(domain.PhaseEnded.String())
		log.Info().Str("module", "orch").Str("call", string(s.ID)).Str("by", string(by)).Msg("call ended")
		o.observe()
	}
	o.sendTo(to, protocol.NewCallEnded(by))
}

func (o *Orchestrator) bound(cid core.ConnID, addr domain.Address) bool {
	got, ok := o.Registry.AddressOf(cid)
	return ok && got == addr
}

func (o *Orchestrator) expire(s domain.CallSession) {
	if _, ok := o.Calls.Expire(s.ID, s.Initiator, s.Target); !ok {
		return
	}
	o.Metrics.CallOutcome("expired")
	log.Info().Str("module", "orch").Str("call", string(s.ID)).Msg("offer expired")
	o.failAddress(s.Initiator, protocol.KindCallFailed, domain.ErrNoAnswer)
	o.sendTo(s.Target, protocol.NewCallEnded(s.Initiator))
	o.observe()
}
