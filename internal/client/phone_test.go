package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/dkeye/Dialtone/internal/adapters/http"
	"github.com/dkeye/Dialtone/internal/app"
	"github.com/dkeye/Dialtone/internal/app/orch"
	"github.com/dkeye/Dialtone/internal/config"
	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/metrics"
	"github.com/dkeye/Dialtone/internal/protocol"
)

type fakeMedia struct {
	label string

	mu         sync.Mutex
	onCand     func(json.RawMessage)
	answer     json.RawMessage
	remoteOff  json.RawMessage
	candidates []string
	closed     bool
}

func (m *fakeMedia) Start(context.Context) error { return nil }

func (m *fakeMedia) emit() {
	m.mu.Lock()
	fn := m.onCand
	m.mu.Unlock()
	if fn != nil {
		fn(json.RawMessage(`{"candidate":"cand-` + m.label + `"}`))
	}
}

func (m *fakeMedia) CreateOffer() (json.RawMessage, error) {
	m.emit()
	return json.RawMessage(`{"type":"offer","sdp":"` + m.label + `"}`), nil
}

func (m *fakeMedia) AcceptOffer(offer json.RawMessage) (json.RawMessage, error) {
	m.mu.Lock()
	m.remoteOff = offer
	m.mu.Unlock()
	m.emit()
	return json.RawMessage(`{"type":"answer","sdp":"` + m.label + `"}`), nil
}

func (m *fakeMedia) ApplyAnswer(answer json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer = answer
	return nil
}

func (m *fakeMedia) AddCandidate(c json.RawMessage) error {
	var ci struct {
		Candidate string `json:"candidate"`
	}
	if err := json.Unmarshal(c, &ci); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, ci.Candidate)
	return nil
}

func (m *fakeMedia) OnCandidate(fn func(json.RawMessage)) {
	m.mu.Lock()
	m.onCand = fn
	m.mu.Unlock()
}

func (m *fakeMedia) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *fakeMedia) snapshot() (answer, offer string, cands []string, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.answer), string(m.remoteOff), append([]string(nil), m.candidates...), m.closed
}

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: t.TempDir(),
		ReadLimit:  32768,
		Secret:     "test-secret",
		SendBuffer: 32,
	}
	o := &orch.Orchestrator{
		Registry:  app.NewRegistry(),
		Directory: app.NewDirectory(),
		Calls:     app.NewCallTable(),
		Policy:    app.SimplePolicy{},
		Metrics:   metrics.New(),
		Options:   orch.Options{NotifyPeerOnDisconnect: true},
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
}

type softphone struct {
	phone  *Phone
	media  *fakeMedia
	events chan protocol.Event
}

func newSoftphone(t *testing.T, url, addr string, autoAccept bool) *softphone {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sp := &softphone{media: &fakeMedia{label: addr}, events: make(chan protocol.Event, 64)}
	sp.phone = NewPhone(c, func() (core.MediaNegotiator, error) { return sp.media, nil })
	sp.phone.AutoAccept = autoAccept
	sp.phone.OnEvent = func(ev protocol.Event) { sp.events <- ev }
	go func() { _ = sp.phone.Run(ctx) }()

	require.NoError(t, c.Register(addr))
	ev := sp.next(t, protocol.KindRegistrationSuccess)
	assert.Equal(t, addr, ev.Address)
	return sp
}

// next waits for the first event of kind, skipping others.
func (sp *softphone) next(t *testing.T, kind protocol.Kind) protocol.Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sp.events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestPhone_CallAnswerHangup(t *testing.T) {
	url := startServer(t)
	alice := newSoftphone(t, url, "100", false)
	bob := newSoftphone(t, url, "200", true)

	require.NoError(t, alice.phone.Call("200"))
	st, _ := alice.phone.Line.State()
	assert.Equal(t, StateDialing, st)

	in := bob.next(t, protocol.KindIncomingCall)
	assert.Equal(t, "100", in.FromAddress)

	ans := alice.next(t, protocol.KindCallAnswered)
	assert.True(t, ans.Accepted)
	st, peer := alice.phone.Line.State()
	assert.Equal(t, StateInCall, st)
	assert.Equal(t, "200", peer)

	answer, _, _, _ := alice.media.snapshot()
	assert.JSONEq(t, `{"type":"answer","sdp":"200"}`, answer)
	require.Eventually(t, func() bool {
		_, _, cands, _ := alice.media.snapshot()
		return len(cands) == 1
	}, 3*time.Second, 10*time.Millisecond)
	_, _, cands, _ := alice.media.snapshot()
	assert.Equal(t, []string{"cand-200"}, cands)

	require.Eventually(t, func() bool {
		_, offer, cands, _ := bob.media.snapshot()
		return offer != "" && len(cands) == 1
	}, 3*time.Second, 10*time.Millisecond)
	_, offer, cands, _ := bob.media.snapshot()
	assert.JSONEq(t, `{"type":"offer","sdp":"100"}`, offer)
	assert.Equal(t, []string{"cand-100"}, cands)
	st, _ = bob.phone.Line.State()
	assert.Equal(t, StateInCall, st)

	require.NoError(t, alice.phone.Hangup())
	ended := bob.next(t, protocol.KindCallEnded)
	assert.Equal(t, "100", ended.ByAddress)
	st, _ = bob.phone.Line.State()
	assert.Equal(t, StateIdle, st)
	_, _, _, closed := bob.media.snapshot()
	assert.True(t, closed)
}

func TestPhone_ManualDecline(t *testing.T) {
	url := startServer(t)
	alice := newSoftphone(t, url, "100", false)
	bob := newSoftphone(t, url, "200", false)

	require.NoError(t, alice.phone.Call("200"))
	bob.next(t, protocol.KindIncomingCall)
	st, _ := bob.phone.Line.State()
	require.Equal(t, StateRinging, st)
	require.NoError(t, bob.phone.Decline())

	ans := alice.next(t, protocol.KindCallAnswered)
	assert.False(t, ans.Accepted)
	assert.Nil(t, ans.Answer)
	st, _ = alice.phone.Line.State()
	assert.Equal(t, StateIdle, st)
	_, _, _, closed := alice.media.snapshot()
	assert.True(t, closed)
}

func TestPhone_CallUnknownFails(t *testing.T) {
	url := startServer(t)
	alice := newSoftphone(t, url, "100", false)

	require.NoError(t, alice.phone.Call("999"))
	fail := alice.next(t, protocol.KindCallFailed)
	assert.Equal(t, "AddressNotFound", fail.Code)
	assert.True(t, fail.Failed())
	st, _ := alice.phone.Line.State()
	assert.Equal(t, StateIdle, st)
}

func TestClient_ListingsAndPing(t *testing.T) {
	url := startServer(t)
	a := newSoftphone(t, url, "100", false)

	require.NoError(t, a.phone.Client.SetPublic(true))
	a.next(t, protocol.KindPublicStatusUpdated)
	require.NoError(t, a.phone.Client.RequestListings())
	assert.Equal(t, []string{"100"}, a.next(t, protocol.KindPublicListings).Listing)
	require.NoError(t, a.phone.Client.Ping())
	a.next(t, protocol.KindPong)

	require.NoError(t, a.phone.Client.Close())
	require.NoError(t, a.phone.Client.Close())
	assert.ErrorIs(t, a.phone.Client.Ping(), ErrClosed)
}
