package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/circuitbreaker"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// writeServiceError maps service errors onto API errors. resource names the
// entity for not-found responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, resource string, err error) {
	var apiErr *apierr.Error
	switch {
	case errors.Is(err, services.ErrNotFound):
		apiErr = apierr.ResourceNotFound(resource)
	case errors.Is(err, services.ErrInvalid):
		apiErr = apierr.ValidationInvalidFormat(err.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		apiErr = apierr.AuthInvalid("")
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		apiErr = apierr.BackendUnavailable()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		apiErr = apierr.SystemTimeout("")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		apiErr = apierr.BackendFailed("")
	}
	apierr.WriteErrorWithContext(w, r, apiErr)
}

// queryBool reads a boolean query parameter; anything unparseable is false.
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
