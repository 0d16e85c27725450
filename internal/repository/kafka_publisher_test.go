package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPred/internal/domain/models"
	pkgkafka "StockPred/pkg/kafka"
)

type recordingProducer struct {
	topics  []string
	keys    [][]byte
	values  []interface{}
	headers []map[string]string
	closed  bool
}

func (r *recordingProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	for _, m := range messages {
		r.topics = append(r.topics, topic)
		r.keys = append(r.keys, m.Key)
		r.values = append(r.values, m.Value)
		r.headers = append(r.headers, m.Headers)
	}
	return nil
}

func (r *recordingProducer) Close() error { r.closed = true; return nil }

func TestKafkaPublisherKeysBySymbol(t *testing.T) {
	rp := &recordingProducer{}
	pub := NewKafkaPublisher(rp, "stockpred.predictions")

	day := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	ps := []models.Prediction{
		{Forecast: models.Forecast{Class: models.ClassSwing, Direction: models.DirectionUp}, Symbol: "AAPL", PredictionDate: day, TargetDate: day.AddDate(0, 0, 9)},
		{Forecast: models.Forecast{Class: models.ClassIntraday}, Symbol: "MSFT", PredictionDate: day},
	}
	require.NoError(t, pub.PublishBatch(context.Background(), ps))
	require.NoError(t, pub.PublishBatch(context.Background(), nil))

	require.Len(t, rp.keys, 2)
	assert.Equal(t, "AAPL", string(rp.keys[0]))
	assert.Equal(t, "stockpred.predictions", rp.topics[1])
	ev := rp.values[0].(PredictionEvent)
	assert.Equal(t, "2025-12-24", ev.PredictionDate)
	assert.Equal(t, "2026-01-02", ev.TargetDate)
	assert.Equal(t, "up", ev.Direction)
	assert.Equal(t, "intraday", rp.headers[1]["class"])

	require.NoError(t, pub.Publish(context.Background(), ps[0]))
	assert.Equal(t, "prediction", rp.headers[2]["event"])

	require.NoError(t, pub.Close())
	assert.True(t, rp.closed)
}
