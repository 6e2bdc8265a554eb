package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tangle/internal/core"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// kinds maps core sentinels to an HTTP status and a machine-readable kind.
var kinds = []struct {
	err    error
	status int
	kind   string
}{
	{core.ErrNotFound, http.StatusNotFound, "not_found"},
	{core.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{core.ErrForbidden, http.StatusForbidden, "forbidden"},
	{core.ErrUnauthenticated, http.StatusForbidden, "unauthenticated"},
	{core.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
	{core.ErrSelfFollow, http.StatusBadRequest, "self_follow"},
	{core.ErrEmptyContent, http.StatusBadRequest, "empty_content"},
	{core.ErrContentTooLong, http.StatusBadRequest, "content_too_long"},
	{core.ErrDuplicateUsername, http.StatusBadRequest, "duplicate_username"},
	{core.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			writeJSON(w, k.status, errorBody(k.kind, err.Error()))
			return
		}
	}

	if logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger); ok {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, http.StatusInternalServerError, errorBody("internal", "Internal Server Error"))
}

func errorBody(kind, message string) errorResponse {
	return errorResponse{Error: errorDetail{Kind: kind, Message: message}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
