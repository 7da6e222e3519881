package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.Envelope("register")
	m.Envelope("register")
	m.Failure("AddressInUse")
	m.Dropped()
	m.CallOutcome("rejected")
	m.Snapshot(3, 2, 1, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Envelopes.WithLabelValues("register")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("AddressInUse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedFrames))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsByOutcome.WithLabelValues("rejected")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Envelope("ping")
		m.Failure("x")
		m.Dropped()
		m.CallOutcome("ended")
		m.Snapshot(1, 1, 1, 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Snapshot(5, 0, 0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "dialtone_connections 5"))
}
