// Package respond writes JSON responses and mapped error bodies.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chris/campus-ledger/pkg/mapping"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error maps err to a status and writes it as an api.Error body. Server-side
// failures are logged with the underlying error, which is never sent back.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := mapping.ToApiError(err)
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	JSON(w, status, body)
}
