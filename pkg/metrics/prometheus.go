package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainingRuns     *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	trainingAccuracy *prometheus.GaugeVec
	predictions      *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New registers the recorder's collectors with the default registry.
func New() *Recorder { return NewWithRegisterer(prometheus.DefaultRegisterer) }

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		trainingRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_training_runs_total",
				Help: "Training attempts by class and outcome",
			},
			[]string{"class", "status"},
		),
		trainingDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpred_training_duration_seconds",
				Help:    "Wall time of one ensemble fit",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"class"},
		),
		trainingAccuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpred_training_accuracy",
				Help: "Holdout accuracy of the most recent successful fit",
			},
			[]string{"class"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_predictions_total",
				Help: "Forecasts served by class and direction",
			},
			[]string{"class", "direction"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpred_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTraining records one training attempt. Accuracy is only kept for successful runs.
func (r *Recorder) RecordTraining(class, status string, seconds, accuracy float64) {
	r.trainingRuns.WithLabelValues(class, status).Inc()
	if status != "succeeded" {
		return
	}
	r.trainingDuration.WithLabelValues(class).Observe(seconds)
	r.trainingAccuracy.WithLabelValues(class).Set(accuracy)
}

func (r *Recorder) RecordPrediction(class, direction string) {
	r.predictions.WithLabelValues(class, direction).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordTraining(string, string, float64, float64) {}
func (Nop) RecordPrediction(string, string)                 {}
func (Nop) RecordError(string)                              {}
func (Nop) RecordLatency(string, float64)                   {}
