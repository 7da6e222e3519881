// Package client is a Go signaling client for the coordinator. It speaks the
// same JSON envelopes as the browser UI.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Dialtone/internal/protocol"
)

var ErrClosed = errors.New("client closed")

const writeWait = 5 * time.Second

type Client struct {
	conn   *websocket.Conn
	events chan protocol.Event

	wmu    sync.Mutex
	once   sync.Once
	closed chan struct{}
}

// Dial connects to a signal endpoint such as ws://host:8080/api/ws/signal.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		events: make(chan protocol.Event, 64),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events yields server envelopes in arrival order. It is closed when the
// connection ends.
func (c *Client) Events() <-chan protocol.Event { return c.events }

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} { return c.closed }

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				log.Warn().Err(err).Str("module", "client").Msg("read loop stopped")
			}
			return
		}
		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad server frame")
			continue
		}
		select {
		case c.events <- ev:
		case <-c.closed:
			return
		}
	}
}

func (c *Client) send(m protocol.Message) error {
	b, err := protocol.EncodeMessage(m)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) Register(addr string) error {
	return c.send(protocol.Register{Address: addr})
}

func (c *Client) SetPublic(visible bool) error {
	return c.send(protocol.SetPublic{Visible: visible})
}

func (c *Client) RequestListings() error {
	return c.send(protocol.GetPublicListings{})
}

func (c *Client) Call(target string, offer json.RawMessage) error {
	return c.send(protocol.CallRequest{TargetAddress: target, Offer: offer})
}

func (c *Client) Answer(caller string, accepted bool, answer json.RawMessage) error {
	return c.send(protocol.CallResponse{CallerAddress: caller, Accepted: accepted, Answer: answer})
}

func (c *Client) Candidate(target string, candidate json.RawMessage) error {
	return c.send(protocol.IceCandidate{TargetAddress: target, Candidate: candidate})
}

func (c *Client) EndCall(target string) error {
	return c.send(protocol.EndCall{TargetAddress: target})
}

func (c *Client) Ping() error {
	return c.send(protocol.Ping{})
}

// Close sends a close frame and tears the socket down. Safe to call twice.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.wmu.Lock()
		close(c.closed)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.wmu.Unlock()
		err = c.conn.Close()
	})
	return err
}
