package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KotobaMedia/binary-blackhole/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeInternalError logs the cause and hides it from the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("unhandled error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "Something went wrong. Please try again later.",
	})
}

// writeStoreError maps store faults to their HTTP statuses; anything
// unclassified becomes a 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrOptimisticLock):
		writeJSON(w, http.StatusConflict, map[string]string{"error_code": "thread_archived"})
	default:
		writeInternalError(w, err)
	}
}
