package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observeN(p *probe, n int) {
	for range n {
		p.observe(context.Background())
	}
}

func TestProbeThresholds(t *testing.T) {
	var failing atomic.Bool
	p := newProbe("db", time.Second, func(context.Context) error {
		if failing.Load() {
			return errors.New("down")
		}
		return nil
	})

	require.True(t, p.healthy.Load(), "starts healthy")

	failing.Store(true)
	observeN(p, failAfter-1)
	assert.True(t, p.healthy.Load(), "stays healthy below the failure threshold")

	observeN(p, 1)
	assert.False(t, p.healthy.Load(), "unhealthy at the threshold")

	msg, bad := p.failure()
	require.True(t, bad)
	assert.Equal(t, "down", msg)

	failing.Store(false)
	observeN(p, recoverAfter)
	assert.True(t, p.healthy.Load(), "recovers after consecutive successes")
}

func TestReadiness(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })

	assert.False(t, h.IsReady(), "not ready before the gate opens")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady(), "gate closes for shutdown drain")
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("conexión rechazada")
	})
	h.SetReady(true)

	// Drive the probe past the failure threshold without Start.
	p := h.readiness[0]
	observeN(p, failAfter)

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp probeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "conexión rechazada", resp.Checks["db"])
}

func TestLiveEndpointHealthy(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStartObservesPeriodically(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddReadinessCheck("counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Start(ctx, 10*time.Millisecond)
	defer h.Stop()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestDatabasePingCheck(t *testing.T) {
	require.NoError(t, DatabasePingCheck(fakePinger{})(context.Background()))

	err := DatabasePingCheck(fakePinger{err: errors.New("refused")})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database")
}
