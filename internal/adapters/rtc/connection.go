package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Dialtone/internal/core"
)

var ErrNotStarted = errors.New("peer media not started")

var _ core.MediaNegotiator = (*PeerMedia)(nil)

// PeerMedia is the client-side audio peer connection. Descriptions and
// candidates cross the signaling channel as their pion JSON encodings.
type PeerMedia struct {
	pc    *webrtc.PeerConnection
	local *webrtc.TrackLocalStaticRTP
	label string

	mu        sync.Mutex
	onICE     func(json.RawMessage)
	pending   []webrtc.ICECandidateInit
	hasRemote bool
	relay     *Relay
	echo      bool
	started   bool

	cancel   context.CancelFunc
	onClosed func()
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// NewPeerMedia creates the peer connection with one Opus send track. With
// echo set, received audio is written back to that track.
func NewPeerMedia(cfg webrtc.Configuration, label string, echo bool) (*PeerMedia, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	local, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", label,
	)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	if _, err := pc.AddTrack(local); err != nil {
		_ = pc.Close()
		return nil, err
	}
	return &PeerMedia{pc: pc, local: local, label: label, echo: echo}, nil
}

func (c *PeerMedia) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.started = true
	c.mu.Unlock()

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("peer", c.label).Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateFailed ||
			s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("peer", c.label).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.mu.Lock()
			fn := c.onClosed
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if fn == nil {
			return
		}
		b, err := json.Marshal(cand.ToJSON())
		if err != nil {
			log.Error().Err(err).Str("module", "webrtc").Msg("marshal candidate")
			return
		}
		fn(b)
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("peer", c.label).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		r := NewRelay(track)
		if c.echo {
			r.SetOutput(c.local)
		}
		c.mu.Lock()
		c.relay = r
		c.mu.Unlock()
		go r.loop(ctx, c.label)
	})

	return nil
}

func (c *PeerMedia) CreateOffer() (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return json.Marshal(c.pc.LocalDescription())
}

func (c *PeerMedia) AcceptOffer(raw json.RawMessage) (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := c.setRemote(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return json.Marshal(c.pc.LocalDescription())
}

func (c *PeerMedia) ApplyAnswer(raw json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	return c.setRemote(answer)
}

// AddCandidate applies a remote candidate, holding it until the remote
// description is known.
func (c *PeerMedia) AddCandidate(raw json.RawMessage) error {
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &ci); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	c.mu.Lock()
	if !c.hasRemote {
		c.pending = append(c.pending, ci)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(ci)
}

func (c *PeerMedia) OnCandidate(fn func(json.RawMessage)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

// OnClosed sets application-level callback for a failed or closed peer.
func (c *PeerMedia) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

// Stats reports what the inbound relay has seen so far.
func (c *PeerMedia) Stats() RelayStats {
	c.mu.Lock()
	r := c.relay
	c.mu.Unlock()
	if r == nil {
		return RelayStats{}
	}
	return r.Stats()
}

func (c *PeerMedia) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("peer", c.label).Msg("close error")
		return
	}
	log.Info().Str("module", "webrtc").Str("peer", c.label).Msg("closed")
}

func (c *PeerMedia) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	return nil
}

func (c *PeerMedia) setRemote(sd webrtc.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(sd); err != nil {
		return err
	}
	c.mu.Lock()
	c.hasRemote = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, ci := range pending {
		if err := c.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "webrtc").Str("peer", c.label).Msg("add buffered candidate")
		}
	}
	return nil
}
