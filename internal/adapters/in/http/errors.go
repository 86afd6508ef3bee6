package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/pkg/errs"
)

// ErrorResponse is the JSON body every failed request returns.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeError maps the error taxonomy onto HTTP status codes and writes
// the JSON error body. Unknown errors become 500 without leaking detail.
func writeError(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, commands.ErrAllTransitionsFailed),
		errors.Is(err, commands.ErrAllAssignmentsFailed):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, errs.ErrInvalidOperation):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, errs.ErrSignatureInvalid):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, errs.ErrUpstreamFailure):
		status = http.StatusBadGateway
		message = err.Error()
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, errs.ErrVersionIsInvalid),
		errors.Is(err, commands.ErrNoOrdersInBatch):
		status = http.StatusBadRequest
		message = err.Error()
	}

	return ctx.JSON(status, ErrorResponse{Code: status, Message: message})
}

// badRequest writes a 400 with the given message, for malformed input
// detected before a command exists.
func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}
