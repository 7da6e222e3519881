package orch

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Dialtone/internal/app"
	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/metrics"
)

// frame is the union of every server envelope field.
type frame struct {
	Type        string          `json:"type"`
	Address     string          `json:"address"`
	Reason      string          `json:"reason"`
	Code        string          `json:"code"`
	Visible     *bool           `json:"visible"`
	Listing     []string        `json:"listing"`
	Online      *bool           `json:"online"`
	FromAddress string          `json:"fromAddress"`
	ByAddress   string          `json:"byAddress"`
	Accepted    *bool           `json:"accepted"`
	Offer       json.RawMessage `json:"offer"`
	Answer      json.RawMessage `json:"answer"`
	Candidate   json.RawMessage `json:"candidate"`
}

type recorder struct {
	t      *testing.T
	mu     sync.Mutex
	frames []frame
	full   bool
}

func (r *recorder) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return core.ErrBackpressure
	}
	var fr frame
	require.NoError(r.t, json.Unmarshal(f, &fr))
	r.frames = append(r.frames, fr)
	return nil
}

func (r *recorder) Close() {}

// take drains and returns everything received so far.
func (r *recorder) take() []frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.frames
	r.frames = nil
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) only(t *testing.T) frame {
	t.Helper()
	got := r.take()
	require.Len(t, got, 1, "frames: %+v", got)
	return got[0]
}

func newTestOrch(opts Options) *Orchestrator {
	return &Orchestrator{
		Registry:  app.NewRegistry(),
		Directory: app.NewDirectory(),
		Calls:     app.NewCallTable(),
		Policy:    app.SimplePolicy{},
		Metrics:   metrics.New(),
		Options:   opts,
	}
}

func connect(t *testing.T, o *Orchestrator, cid core.ConnID) *recorder {
	r := &recorder{t: t}
	o.Connect(cid, r, func() {})
	return r
}

// registered connects cid, registers addr and clears the resulting frames.
func registered(t *testing.T, o *Orchestrator, cid core.ConnID, addr string, others ...*recorder) *recorder {
	t.Helper()
	r := connect(t, o, cid)
	o.Register(cid, addr)
	require.Equal(t, "registration_success", r.only(t).Type)
	for _, other := range others {
		other.take()
	}
	return r
}
