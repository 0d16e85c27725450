package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordTraining("swing", "succeeded", 12, 0.61)
	r.RecordTraining("swing", "failed", 1, 0.99)
	r.RecordPrediction("swing", "up")
	r.RecordPrediction("swing", "up")
	r.RecordError("upstream_data")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.trainingRuns.WithLabelValues("swing", "failed")))
	assert.Equal(t, 0.61, testutil.ToFloat64(r.trainingAccuracy.WithLabelValues("swing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.predictions.WithLabelValues("swing", "up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("upstream_data")))
}
