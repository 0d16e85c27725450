package repository

import (
	"context"
	"time"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
	pkgkafka "StockPred/pkg/kafka"
)

type producer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher implements Publisher for Kafka, keyed by symbol.
type KafkaPublisher struct {
	producer producer
	topic    string
}

// PredictionEvent is the wire shape of a published prediction.
type PredictionEvent struct {
	Symbol          string  `json:"symbol"`
	Class           string  `json:"class"`
	Direction       string  `json:"direction"`
	Confidence      float64 `json:"confidence"`
	PredictedReturn float64 `json:"predicted_return"`
	CurrentPrice    float64 `json:"current_price"`
	TargetPrice     float64 `json:"target_price"`
	StopLoss        float64 `json:"stop_loss"`
	EntryLow        float64 `json:"entry_low"`
	EntryHigh       float64 `json:"entry_high"`
	PredictionDate  string  `json:"prediction_date"`
	TargetDate      string  `json:"target_date"`
	HorizonDays     int     `json:"horizon_days"`
	ArtifactID      string  `json:"artifact_id"`
}

func NewKafkaPublisher(producer producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func toEvent(p models.Prediction) PredictionEvent {
	return PredictionEvent{
		Symbol:          p.Symbol,
		Class:           string(p.Class),
		Direction:       string(p.Direction),
		Confidence:      p.Confidence,
		PredictedReturn: p.PredictedReturn,
		CurrentPrice:    p.CurrentPrice,
		TargetPrice:     p.TargetPrice,
		StopLoss:        p.StopLoss,
		EntryLow:        p.EntryPriceLow,
		EntryHigh:       p.EntryPriceHigh,
		PredictionDate:  p.PredictionDate.Format(time.DateOnly),
		TargetDate:      p.TargetDate.Format(time.DateOnly),
		HorizonDays:     p.HorizonDays,
		ArtifactID:      p.ArtifactID,
	}
}

func toMessage(p models.Prediction) pkgkafka.Message {
	return pkgkafka.Message{
		Key:   []byte(p.Symbol),
		Value: toEvent(p),
		Headers: map[string]string{
			"event": "prediction",
			"class": string(p.Class),
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, pr models.Prediction) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{toMessage(pr)})
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, ps []models.Prediction) error {
	if len(ps) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ps))
	for i, pr := range ps {
		msgs[i] = toMessage(pr)
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
