package httpadapter

import (
	"net/http"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

// A stage failure wraps its cause, which may itself be invalid input, so it
// is matched first.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrStageFailed):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrClaimNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicateID), domain.IsKind(err, domain.ErrStepInFlight):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
