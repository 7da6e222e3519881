package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/dkeye/Dialtone/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, cid core.ConnID, c *WsSignalConn) {
	var tick <-chan time.Time
	if ctl.pingPeriod > 0 {
		ticker := time.NewTicker(ctl.pingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	// Closing the socket unblocks readPump, which owns cleanup.
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("cid", string(cid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("writePump write error")
				return
			}
		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, cid core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(cid)
		ctl.Limiter.Forget(cid)
		c.Close()
	}()

	if ctl.pingPeriod > 0 {
		pongWait := ctl.pingPeriod * 10 / 9
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(cid, data)
		}
	}
}

// handleSignal decodes one inbound frame and dispatches it. Frames from the
// same connection are handled strictly in arrival order.
func (ctl *SignalWSController) handleSignal(cid core.ConnID, data []byte) {
	if !ctl.Limiter.Allow(cid) {
		ctl.Orch.Fail(cid, protocol.KindError, domain.ErrRateLimited)
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		if !errors.Is(err, domain.ErrUnknownMessageType) {
			log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad frame")
		}
		ctl.Orch.Fail(cid, protocol.KindError, err)
		return
	}
	ctl.Metrics.Envelope(string(msg.Kind()))

	switch m := msg.(type) {
	case protocol.Register:
		ctl.handleRegister(cid, m)
	case protocol.SetPublic:
		ctl.handleSetPublic(cid, m)
	case protocol.GetPublicListings:
		ctl.handleListings(cid)
	case protocol.CallRequest:
		ctl.handleCallRequest(cid, m)
	case protocol.CallResponse:
		ctl.handleCallResponse(cid, m)
	case protocol.IceCandidate:
		ctl.handleCandidate(cid, m)
	case protocol.EndCall:
		ctl.handleEndCall(cid, m)
	case protocol.Ping:
		ctl.handlePing(cid)
	default:
		log.Warn().Str("module", "signal").Str("type", string(msg.Kind())).Msg("unhandled signal")
	}
}
