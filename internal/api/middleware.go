package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("writing json response", "error", err)
	}
}

// errorResponse writes an error JSON response.
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// catalogError writes err with the status its taxonomy kind maps to.
func catalogError(w http.ResponseWriter, err error) {
	errorResponse(w, statusFor(err), err.Error())
}

// statusFor maps the catalog error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, metadata.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, metadata.ErrTableNameAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, metadata.ErrNotFound),
		errors.Is(err, metadata.ErrIDNotFound),
		errors.Is(err, metadata.ErrNameNotFound):
		return http.StatusNotFound
	case errors.Is(err, metadata.ErrInvalidParameter),
		errors.Is(err, metadata.ErrNotSupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger is middleware that logs HTTP requests.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
