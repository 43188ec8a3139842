package httpserver

import (
	"net/http"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// RespondDomainError maps a domain.Error's Kind to an HTTP status and
// writes it as a JSON error envelope. An error that isn't a domain.Error
// falls through to the internal_error/500 branch.
func RespondDomainError(w http.ResponseWriter, err error) {
	status, code := statusForKind(domain.KindOf(err))
	RespondError(w, status, code, err.Error())
}

func statusForKind(kind domain.Kind) (int, string) {
	switch kind {
	case domain.KindInvalidTenant, domain.KindInvalidQuery, domain.KindValidationFailure:
		return http.StatusBadRequest, string(kind)
	case domain.KindAuthFailure:
		return http.StatusUnauthorized, string(kind)
	case domain.KindMissingTenantFilter, domain.KindTenantLeak:
		return http.StatusForbidden, string(kind)
	case domain.KindRateLimited:
		return http.StatusTooManyRequests, string(kind)
	case domain.KindUpstreamTimeout:
		return http.StatusGatewayTimeout, string(kind)
	case domain.KindLLMUnavailable, domain.KindQualityBelowThresh:
		return http.StatusServiceUnavailable, string(kind)
	case domain.KindPermanentClientError:
		return http.StatusBadRequest, string(kind)
	case domain.KindCancelled:
		return 499, string(kind)
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
