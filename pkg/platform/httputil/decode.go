package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "dim/pkg/domain-errors"
)

// Validatable is implemented by request types that check themselves.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that canonicalize their fields.
type Normalizable interface {
	Normalize()
}

// DecodeJSON decodes the request body into a T. On failure it writes a
// bad_request response and returns false.
//
//	req, ok := httputil.DecodeJSON[GrantRequest](ctx, w, r, h.logger, requestID)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// Prepare normalizes then validates req when it supports either step.
func Prepare(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the body then runs Prepare. Validation failures
// keep their domain code; plain errors become validation_failed.
func DecodeAndPrepare[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](ctx, w, r, logger, requestID)
	if !ok {
		return nil, false
	}
	if err := Prepare(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		var domainErr *dErrors.Error
		if !errors.As(err, &domainErr) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
