package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hogar/internal/core"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses: validation to 400,
// missing references to 404, insufficient funds or credit to 422.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		validation   *core.ValidationError
		referential  *core.ReferentialError
		insufficient *core.InsufficientFundsError
		noCredit     *core.InsufficientCreditError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &referential):
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: referential.Error()})
	case errors.As(err, &insufficient):
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: insufficient.Error()})
	case errors.As(err, &noCredit):
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: noCredit.Error()})
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &core.ValidationError{Field: "body", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. Empty input
// falls back to fallback.
func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, &core.ValidationError{Field: "date", Reason: "expected RFC 3339 timestamp or YYYY-MM-DD"}
}
