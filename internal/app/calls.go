package app

import (
	"sync"
	"time"

	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

type callKey struct {
	Initiator domain.Address
	Target    domain.Address
}

// CallTable owns every Call Session, keyed by (initiator, target).
// Callers receive copies; the records never leave the lock.
type CallTable struct {
	mu    sync.Mutex
	calls map[callKey]*domain.CallSession
	now   func() time.Time
}

func NewCallTable() *CallTable {
	return &CallTable{
		calls: make(map[callKey]*domain.CallSession),
		now:   time.Now,
	}
}

// Offer opens a session in phase offered. A repeated offer for the same
// direction replaces the previous record.
func (t *CallTable) Offer(initiator, target domain.Address) domain.CallSession {
	s := domain.NewCallSession(domain.CallID(ulid.Make().String()), initiator, target, t.now())
	_ = s.Advance(domain.PhaseOffered)

	t.mu.Lock()
	defer t.mu.Unlock()
	k := callKey{initiator, target}
	if old, ok := t.calls[k]; ok {
		log.Info().Str("module", "app.calls").Str("call", string(old.ID)).Msg("offer replaced")
	}
	t.calls[k] = s
	log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Str("from", string(initiator)).Str("to", string(target)).Msg("offered")
	return *s
}

// Answer applies the target's response. Accepted calls go straight to active;
// rejected ones are discarded. ok is false if no offered session exists.
func (t *CallTable) Answer(initiator, target domain.Address, accepted bool) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := callKey{initiator, target}
	s, ok := t.calls[k]
	if !ok || s.Phase != domain.PhaseOffered {
		return domain.CallSession{}, false
	}
	if !accepted {
		_ = s.Advance(domain.PhaseRejected)
		delete(t.calls, k)
		log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Msg("rejected")
		return *s, true
	}
	_ = s.Advance(domain.PhaseAccepted)
	_ = s.Advance(domain.PhaseActive)
	log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Msg("active")
	return *s, true
}

// End destroys the session between a and b in either direction.
func (t *CallTable) End(a, b domain.Address) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range []callKey{{a, b}, {b, a}} {
		if s, ok := t.calls[k]; ok {
			_ = s.Advance(domain.PhaseEnded)
			delete(t.calls, k)
			log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Str("by", string(a)).Msg("ended")
			return *s, true
		}
	}
	return domain.CallSession{}, false
}

// Expire ends the session only if it is still the same unanswered offer.
func (t *CallTable) Expire(id domain.CallID, initiator, target domain.Address) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := callKey{initiator, target}
	s, ok := t.calls[k]
	if !ok || s.ID != id || s.Phase != domain.PhaseOffered {
		return domain.CallSession{}, false
	}
	_ = s.Advance(domain.PhaseEnded)
	delete(t.calls, k)
	log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Msg("expired")
	return *s, true
}

// Busy reports whether addr is a party to any outstanding session with
// someone other than except.
func (t *CallTable) Busy(addr, except domain.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.calls {
		if s.Involves(addr) && s.Counterpart(addr) != except && s.Phase.Outstanding() {
			return true
		}
	}
	return false
}

// Withdraw removes the session only if it is still the record with id.
func (t *CallTable) Withdraw(id domain.CallID, initiator, target domain.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := callKey{initiator, target}
	s, ok := t.calls[k]
	if !ok || s.ID != id {
		return false
	}
	delete(t.calls, k)
	log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Msg("withdrawn")
	return true
}

// DropParty removes every session addr takes part in and returns them as
// they were before removal.
func (t *CallTable) DropParty(addr domain.Address) []domain.CallSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.CallSession
	for k, s := range t.calls {
		if !s.Involves(addr) {
			continue
		}
		out = append(out, *s)
		delete(t.calls, k)
	}
	if len(out) > 0 {
		log.Info().Str("module", "app.calls").Str("address", string(addr)).Int("dropped", len(out)).Msg("dropped party")
	}
	return out
}

// Get returns a copy of the session for the given direction.
func (t *CallTable) Get(initiator, target domain.Address) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.calls[callKey{initiator, target}]
	if !ok {
		return domain.CallSession{}, false
	}
	return *s, true
}

func (t *CallTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
