package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/protocol"
)

// MediaFactory builds a fresh negotiator for each call.
type MediaFactory func() (core.MediaNegotiator, error)

// Phone drives a Line and its media from the client's event stream.
type Phone struct {
	Client     *Client
	NewMedia   MediaFactory
	AutoAccept bool
	// OnEvent, if set, sees every event after the phone has handled it.
	OnEvent func(protocol.Event)

	Line Line

	mu      sync.Mutex
	ctx     context.Context
	media   core.MediaNegotiator
	offer   json.RawMessage
	offerBy string
	// held queues local candidates until the offer or answer is on the wire.
	held    []json.RawMessage
	holding bool
}

func NewPhone(c *Client, media MediaFactory) *Phone {
	return &Phone{Client: c, NewMedia: media, ctx: context.Background()}
}

// Run consumes events until the connection ends or ctx is done.
func (p *Phone) Run(ctx context.Context) error {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	defer p.closeMedia()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.Client.Events():
			if !ok {
				return ErrClosed
			}
			p.handle(ev)
			if p.OnEvent != nil {
				p.OnEvent(ev)
			}
		}
	}
}

func (p *Phone) handle(ev protocol.Event) {
	switch ev.Kind {
	case protocol.KindIncomingCall:
		if err := p.Line.Ring(ev.FromAddress); err != nil {
			log.Info().Err(err).Str("module", "client").Msg("declining")
			_ = p.Client.Answer(ev.FromAddress, false, nil)
			return
		}
		p.mu.Lock()
		p.offer, p.offerBy = ev.Offer, ev.FromAddress
		p.mu.Unlock()
		if p.AutoAccept {
			if err := p.Accept(); err != nil {
				log.Error().Err(err).Str("module", "client").Msg("auto accept")
			}
		}
	case protocol.KindCallAnswered:
		if err := p.Line.Answered(ev.ByAddress, ev.Accepted); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("stray answer")
			return
		}
		if !ev.Accepted {
			p.closeMedia()
			return
		}
		if m := p.currentMedia(); m != nil {
			if err := m.ApplyAnswer(ev.Answer); err != nil {
				log.Error().Err(err).Str("module", "client").Msg("apply answer")
			}
		}
	case protocol.KindCallFailed:
		p.Line.Failed()
		p.closeMedia()
	case protocol.KindIceCandidate:
		if _, peer := p.Line.State(); peer != ev.FromAddress {
			return
		}
		if m := p.currentMedia(); m != nil {
			if err := m.AddCandidate(ev.Candidate); err != nil {
				log.Warn().Err(err).Str("module", "client").Msg("add candidate")
			}
		}
	case protocol.KindCallEnded:
		if p.Line.Ended(ev.ByAddress) {
			p.closeMedia()
		}
	}
}

// Call dials target with a fresh local offer.
func (p *Phone) Call(target string) error {
	if err := p.Line.Dial(target); err != nil {
		return err
	}
	m, err := p.startMedia(target)
	if err != nil {
		p.Line.Failed()
		return err
	}
	offer, err := m.CreateOffer()
	if err == nil {
		err = p.Client.Call(target, offer)
	}
	if err != nil {
		p.Line.Failed()
		p.closeMedia()
		return err
	}
	p.release(target)
	return nil
}

// Accept answers the ringing call.
func (p *Phone) Accept() error {
	if st, _ := p.Line.State(); st != StateRinging {
		return ErrWrongState
	}
	p.mu.Lock()
	offer, from := p.offer, p.offerBy
	p.offer, p.offerBy = nil, ""
	p.mu.Unlock()

	m, err := p.startMedia(from)
	if err != nil {
		return errors.Join(err, p.Decline())
	}
	answer, err := m.AcceptOffer(offer)
	if err != nil {
		p.closeMedia()
		return errors.Join(err, p.Decline())
	}
	if _, err := p.Line.Pick(true); err != nil {
		p.closeMedia()
		return err
	}
	if err := p.Client.Answer(from, true, answer); err != nil {
		return err
	}
	p.release(from)
	return nil
}

func (p *Phone) Decline() error {
	from, err := p.Line.Pick(false)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.offer, p.offerBy = nil, ""
	p.mu.Unlock()
	return p.Client.Answer(from, false, nil)
}

// Hangup ends the current call, if any.
func (p *Phone) Hangup() error {
	peer, ok := p.Line.Hangup()
	p.closeMedia()
	if !ok {
		return nil
	}
	return p.Client.EndCall(peer)
}

func (p *Phone) startMedia(peer string) (core.MediaNegotiator, error) {
	m, err := p.NewMedia()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if err := m.Start(ctx); err != nil {
		m.Close()
		return nil, err
	}
	p.mu.Lock()
	old := p.media
	p.media = m
	p.held, p.holding = nil, true
	p.mu.Unlock()

	m.OnCandidate(func(c json.RawMessage) {
		p.mu.Lock()
		if p.holding {
			p.held = append(p.held, c)
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		p.sendCandidate(peer, c)
	})
	if old != nil {
		old.Close()
	}
	return m, nil
}

// release flushes held candidates and sends later ones directly.
func (p *Phone) release(peer string) {
	p.mu.Lock()
	held := p.held
	p.held, p.holding = nil, false
	p.mu.Unlock()
	for _, c := range held {
		p.sendCandidate(peer, c)
	}
}

func (p *Phone) sendCandidate(peer string, c json.RawMessage) {
	if err := p.Client.Candidate(peer, c); err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("send candidate")
	}
}

func (p *Phone) currentMedia() core.MediaNegotiator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.media
}

func (p *Phone) closeMedia() {
	p.mu.Lock()
	m := p.media
	p.media = nil
	p.mu.Unlock()
	if m != nil {
		m.Close()
	}
}
