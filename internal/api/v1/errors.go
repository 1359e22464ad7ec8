package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/publicworks-io/regie/internal/domain"
)

// mapError translates domain errors into HTTP problem responses. Chain
// conflicts surface as 409 and are retryable by the caller after a fresh
// read; the core never retries on its own.
func mapError(err error) error {
	var (
		verr *domain.ValidationError
		perr *domain.PolicyError
	)
	switch {
	case errors.As(err, &verr):
		return huma.Error422UnprocessableEntity(verr.Error())
	case errors.As(err, &perr):
		return huma.Error422UnprocessableEntity(perr.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidReference):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrChainConflict):
		return huma.Error409Conflict("concurrent update lost the race, re-read and retry: " + err.Error())
	case errors.Is(err, domain.ErrTooManyItems):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
