package client

import (
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateDialing
	StateRinging
	StateInCall
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDialing:
		return "dialing"
	case StateRinging:
		return "ringing"
	case StateInCall:
		return "in_call"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrLineBusy    = errors.New("line busy")
	ErrWrongState  = errors.New("not allowed in current state")
	ErrUnknownPeer = errors.New("event from unexpected peer")
)

// Line is the single-call state of one client. Each method is one edge of
// idle → dialing → in_call and idle → ringing → in_call; every failure or
// hangup returns to idle.
type Line struct {
	mu    sync.Mutex
	state State
	peer  string
}

func (l *Line) State() (State, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.peer
}

// Dial starts an outgoing call.
func (l *Line) Dial(target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return fmt.Errorf("dial %s while %s: %w", target, l.state, ErrLineBusy)
	}
	l.state, l.peer = StateDialing, target
	return nil
}

// Ring records an incoming offer. A busy line leaves the current call alone.
func (l *Line) Ring(from string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return fmt.Errorf("ring from %s while %s: %w", from, l.state, ErrLineBusy)
	}
	l.state, l.peer = StateRinging, from
	return nil
}

// Pick answers (accept) or declines the ringing call and returns the caller.
func (l *Line) Pick(accept bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRinging {
		return "", fmt.Errorf("pick while %s: %w", l.state, ErrWrongState)
	}
	peer := l.peer
	if accept {
		l.state = StateInCall
	} else {
		l.state, l.peer = StateIdle, ""
	}
	return peer, nil
}

// Answered applies the callee's decision to an outgoing call.
func (l *Line) Answered(by string, accepted bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateDialing {
		return fmt.Errorf("answer while %s: %w", l.state, ErrWrongState)
	}
	if by != l.peer {
		return fmt.Errorf("answer by %s, dialing %s: %w", by, l.peer, ErrUnknownPeer)
	}
	if accepted {
		l.state = StateInCall
	} else {
		l.state, l.peer = StateIdle, ""
	}
	return nil
}

// Failed drops an outgoing attempt.
func (l *Line) Failed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDialing {
		l.state, l.peer = StateIdle, ""
	}
}

// Ended handles call_ended from by. It reports false if by is not the peer.
func (l *Line) Ended(by string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateIdle || by != l.peer {
		return false
	}
	l.state, l.peer = StateIdle, ""
	return true
}

// Hangup returns to idle and reports the peer to notify, if any.
func (l *Line) Hangup() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateIdle {
		return "", false
	}
	peer := l.peer
	l.state, l.peer = StateIdle, ""
	return peer, true
}
