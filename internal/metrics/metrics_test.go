package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCompletion(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCompletion("stub", 10*time.Millisecond, nil)
	m.ObserveCompletion("stub", 10*time.Millisecond, nil)
	m.ObserveCompletion("stub", time.Second, errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.completionsTotal.WithLabelValues("stub", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.completionsTotal.WithLabelValues("stub", OutcomeError)), 0)
}

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("GET", "/", 200, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/", "200")), 0)
}

func TestWatchSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	n := 3
	m.WatchSessions(func() int { return n })

	count, err := testutil.GatherAndCount(reg, "fruitbot_sessions_active")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCompletion("stub", time.Millisecond, nil)
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
		m.WatchSessions(func() int { return 0 })
	})
}
