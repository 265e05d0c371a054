package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	authcore "github.com/planora/authcore"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), httpStatus(err))
}

// httpStatus maps engine errors onto the response codes the frontend keys
// off. Credential-shaped failures are all 401 so the page shows the same
// generic message for each.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrTOTPInvalid),
		errors.Is(err, authcore.ErrChallengeExpired),
		errors.Is(err, authcore.ErrSignatureInvalid),
		errors.Is(err, authcore.ErrCounterReplayed),
		errors.Is(err, authcore.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrTOTPNotConfigured),
		errors.Is(err, authcore.ErrSecondFactorUnavailable),
		errors.Is(err, authcore.ErrGateRequired):
		return http.StatusForbidden
	case errors.Is(err, authcore.ErrChallengeInvalid),
		errors.Is(err, authcore.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, authcore.ErrCredentialUnknown):
		return http.StatusNotFound
	case errors.Is(err, authcore.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
