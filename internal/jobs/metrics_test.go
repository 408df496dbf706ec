package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	at := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return at }

	require.NoError(t, m.Track("gl_integrity").End(nil))
	err := m.Track("gl_integrity").End(errors.New("boom"))
	require.EqualError(t, err, "boom")

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gl_integrity", StatusSucceeded)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gl_integrity", StatusFailed)))
	require.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("gl_integrity")))

	m.SetDrift(3)
	require.Equal(t, 3.0, testutil.ToFloat64(m.drift))
}

func TestFailureKeepsLastSuccess(t *testing.T) {
	m := NewMetrics(nil)
	require.Error(t, m.Track("report_warmup").End(errors.New("redis down")))
	require.Zero(t, testutil.CollectAndCount(m.lastSuccess))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("noop").End(nil))
	m.SetDrift(1)
}
