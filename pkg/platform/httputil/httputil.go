package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "dim/pkg/domain-errors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	// Retryable tells clients whether to re-query state and try again.
	Retryable bool `json:"retryable"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into an HTTP response.
// Anything that is not a domain error is reported as internal_error without details.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:       string(domainErr.Code),
			Description: domainErr.Message,
			Retryable:   dErrors.IsTransient(domainErr),
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput,
		dErrors.CodeInvariantViolation, dErrors.CodeUnknownCategory:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeAlreadyRegistered, dErrors.CodeAlreadyReviewed, dErrors.CodeAlreadyRevoked:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeSignatureInvalid:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeSignerMismatch, dErrors.CodeProofExpired:
		return http.StatusForbidden
	case dErrors.CodeNotRegistered:
		return http.StatusPreconditionFailed
	case dErrors.CodeTimeout, dErrors.CodeIndeterminate:
		return http.StatusGatewayTimeout
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
