package usecase

import (
	"context"
	"errors"

	"StockPred/internal/domain/models"
)

// ErrorKind maps an error to a low-cardinality metrics label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrUpstreamData):
		return "upstream_data"
	case errors.Is(err, models.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, models.ErrModelNotTrained):
		return "model_not_trained"
	case errors.Is(err, models.ErrUnknownClass):
		return "unknown_class"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal"
	}
}
