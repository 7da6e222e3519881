package rtc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type RelayStats struct {
	Packets  uint64
	Bytes    uint64
	SSRC     uint32
	LastSeq  uint16
	Forwards uint64
}

// Relay drains one remote track, counting what arrives and optionally
// forwarding every packet to a local track.
type Relay struct {
	Src *webrtc.TrackRemote

	mu    sync.Mutex
	out   *webrtc.TrackLocalStaticRTP
	stats RelayStats

	muted atomic.Bool
}

func NewRelay(src *webrtc.TrackRemote) *Relay {
	return &Relay{Src: src}
}

func (r *Relay) SetOutput(track *webrtc.TrackLocalStaticRTP) {
	r.mu.Lock()
	r.out = track
	r.mu.Unlock()
}

func (r *Relay) SetMuted(muted bool) { r.muted.Store(muted) }

func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Relay) loop(ctx context.Context, label string) {
	logger := log.With().Str("module", "relay").Str("peer", label).Logger()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done")
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Debug().Err(err).Msg("relay read RTP stopped")
			return
		}
		if err := r.forward(pkt); err != nil {
			logger.Warn().Err(err).Msg("relay write RTP error, dropping output")
			r.SetOutput(nil)
		}
	}
}

func (r *Relay) forward(pkt *rtp.Packet) error {
	r.mu.Lock()
	r.stats.Packets++
	r.stats.Bytes += uint64(len(pkt.Payload))
	r.stats.SSRC = pkt.SSRC
	r.stats.LastSeq = pkt.SequenceNumber
	out := r.out
	r.mu.Unlock()

	if out == nil || r.muted.Load() {
		return nil
	}
	if err := out.WriteRTP(pkt); err != nil {
		return err
	}
	r.mu.Lock()
	r.stats.Forwards++
	r.mu.Unlock()
	return nil
}
