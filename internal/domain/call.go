package domain

import (
	"fmt"
	"time"
)

type CallID string

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOffered
	PhaseAccepted
	PhaseRejected
	PhaseActive
	PhaseEnded
)

var phaseNames = [...]string{"idle", "offered", "accepted", "rejected", "active", "ended"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal phases let the record be discarded.
func (p Phase) Terminal() bool { return p == PhaseRejected || p == PhaseEnded }

// Outstanding reports phases that make an address a party to a live call.
func (p Phase) Outstanding() bool {
	return p == PhaseOffered || p == PhaseAccepted || p == PhaseActive
}

var transitions = map[Phase][]Phase{
	PhaseIdle:     {PhaseOffered},
	PhaseOffered:  {PhaseAccepted, PhaseRejected, PhaseEnded},
	PhaseAccepted: {PhaseActive, PhaseEnded},
	PhaseActive:   {PhaseEnded},
}

// CallSession is the negotiation state between an initiator and a target.
// No locking here; the owning table serializes access.
type CallSession struct {
	ID        CallID
	Initiator Address
	Target    Address
	Phase     Phase
	CreatedAt time.Time
}

func NewCallSession(id CallID, initiator, target Address, now time.Time) *CallSession {
	return &CallSession{ID: id, Initiator: initiator, Target: target, Phase: PhaseIdle, CreatedAt: now}
}

// Advance moves the session to the next phase if the state machine allows it.
func (s *CallSession) Advance(to Phase) error {
	for _, next := range transitions[s.Phase] {
		if next == to {
			s.Phase = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, to)
}

// Involves reports whether addr is either party of the session.
func (s *CallSession) Involves(addr Address) bool {
	return s.Initiator == addr || s.Target == addr
}

// Counterpart returns the other party relative to addr.
func (s *CallSession) Counterpart(addr Address) Address {
	if s.Initiator == addr {
		return s.Target
	}
	return s.Initiator
}
