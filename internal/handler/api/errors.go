package api

import (
	"context"
	"errors"
	"net/http"

	"StockPred/internal/domain/models"
	xhttp "StockPred/pkg/http"
)

// toAppError maps domain failures onto transport errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrUnknownClass):
		return xhttp.NotFoundError(err.Error()).WithError(err).WithParam("kind", "unknown_class")
	case errors.Is(err, models.ErrModelNotTrained):
		return xhttp.NotFoundError(err.Error()).WithError(err).WithParam("kind", "model_not_trained")
	case errors.Is(err, models.ErrSchemaMismatch):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrUpstreamData):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
