package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.ObserveLines(StreamMetrics, 10, 7)
	r.ObserveLines(StreamHealth, 4, 4)
	r.SetUnstable(2)
	r.ObserveFit(20*time.Millisecond, nil)
	r.ObserveFit(time.Second, errors.New("fit failed"))
	r.ObserveRecommendation("checkout", "cpu", 240)
	r.ObserveRecommendation("checkout", "memory", 307)

	assert.Equal(t, 7.0, testutil.ToFloat64(r.LinesTotal.WithLabelValues(StreamMetrics, "parsed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.LinesTotal.WithLabelValues(StreamMetrics, "skipped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.LinesTotal.WithLabelValues(StreamHealth, "skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.UnstableServices))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ForecastFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RecommendationsTotal.WithLabelValues("cpu")))
	assert.Equal(t, 240.0, testutil.ToFloat64(r.RecommendedValue.WithLabelValues("checkout", "cpu")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.FitDurationSeconds))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveLines(StreamMetrics, 1, 1)
		r.SetUnstable(1)
		r.ObserveFit(time.Second, nil)
		r.ObserveRecommendation("a", "cpu", 1)
	})
	assert.Nil(t, r.Registry())
	assert.Error(t, r.WriteToTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteToTextfile(t *testing.T) {
	r := NewRecorder()
	r.SetUnstable(3)

	path := filepath.Join(t.TempDir(), "advisor.prom")
	require.NoError(t, r.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resource_advisor_unstable_services 3")
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.SetUnstable(5)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.UnstableServices))
}
