package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"

	"StockPred/internal/domain/models"
	pkgkafka "StockPred/pkg/kafka"
	"StockPred/pkg/logger"
	"StockPred/pkg/queue"
)

// TrainJobType is the queue message type for training requests.
const TrainJobType = "train_models"

// TrainJob runs training batches from the Redis queue.
type TrainJob struct {
	uc *TrainingUseCase
}

func NewTrainJob(uc *TrainingUseCase) *TrainJob { return &TrainJob{uc: uc} }

func (j *TrainJob) Name() string { return "train" }
func (j *TrainJob) Type() string { return TrainJobType }

func (j *TrainJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.ParsePayload[models.TrainRequest](payload)
	if err != nil {
		return err
	}
	params, err := TrainParamsFrom(*req)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
	}
	report, err := j.uc.TrainBatch(ctx, params)
	if err != nil {
		if errors.Is(err, models.ErrUnknownClass) || errors.Is(err, models.ErrInsufficientData) {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		return err
	}
	// Transient infrastructure failures are worth a retry; data problems are not.
	if report.Succeeded == 0 && report.Failed > 0 && !allDataErrors(report) {
		return fmt.Errorf("training batch: all %d runs failed", report.Failed)
	}
	return nil
}

func allDataErrors(r *TrainReport) bool {
	for _, run := range r.Runs {
		if run.Status == models.RunStatusFailed && !isDataError(run.Error) {
			return false
		}
	}
	return true
}

func isDataError(msg string) bool {
	for _, sentinel := range []error{models.ErrInsufficientData, models.ErrUpstreamData, models.ErrUnknownClass} {
		if strings.Contains(msg, sentinel.Error()) {
			return true
		}
	}
	return false
}

// TrainParamsFrom converts a transport request into batch parameters.
func TrainParamsFrom(req models.TrainRequest) (TrainParams, error) {
	p := TrainParams{Symbols: req.Symbols, Pooled: req.Pooled, N: req.N}
	for _, c := range req.Classes {
		if c == "" {
			return TrainParams{}, fmt.Errorf("empty class")
		}
		p.Classes = append(p.Classes, models.PredictionClass(c))
	}
	return p, nil
}

// Enqueuer accepts queue messages.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// TrainRequestHandler forwards training requests from Kafka to the job queue.
type TrainRequestHandler struct {
	topic string
	queue Enqueuer
	log   *logger.Logger
}

func NewTrainRequestHandler(topic string, q Enqueuer, l *logger.Logger) *TrainRequestHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &TrainRequestHandler{topic: topic, queue: q, log: l.With("train_requests")}
}

func (h *TrainRequestHandler) Topic() string { return h.topic }

func (h *TrainRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.TrainRequest
	if err := defaults.Set(&req); err != nil {
		return err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			// Malformed requests are dropped; retrying cannot fix them.
			h.log.Warn("discarding malformed train request", logger.Error(err))
			return nil
		}
	}
	id, err := h.queue.Enqueue(ctx, TrainJobType, req)
	if err != nil {
		return fmt.Errorf("enqueue train request: %w", err)
	}
	h.log.Info("train request queued", logger.String("job_id", id), logger.Strings("classes", req.Classes))
	return nil
}

var _ pkgkafka.MessageHandler = (*TrainRequestHandler)(nil)
var _ queue.Job = (*TrainJob)(nil)
