package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg).(*PrometheusRecorder)

	rec.IncCounter("submitted", map[string]string{"operation": "pay"})
	rec.IncCounter("submitted", map[string]string{"operation": "pay"})
	rec.IncCounter("guard_rejected", map[string]string{"operation": "accept"})
	rec.ObserveLatency("pay", 3*time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.counters.WithLabelValues("submitted", "pay")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.counters.WithLabelValues("guard_rejected", "accept")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.histogram))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "requestnet_events_total")
	assert.Contains(t, names, "requestnet_confirmation_latency_seconds")
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NoopRecorder{}
	rec.IncCounter("x", nil)
	rec.ObserveLatency("x", time.Second, nil)
}
