package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ametnes/nesis-console/internal/logger"
	"github.com/ametnes/nesis-console/internal/models"
	"github.com/ametnes/nesis-console/internal/upstream"
	"go.uber.org/zap"
)

const (
	messageBodyNotSupplied = "Invalid request. body not supplied"
	messageInvalidID       = "Invalid request. id not supplied"
	messageUnexpected      = "Unexpected error"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondMessage sends a {"message": ...} body, the shape the console's
// error parser reads.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.Message{Message: logger.SanitizeString(message, 200)})
}

// relay writes an upstream response back to the caller unchanged.
func relay(w http.ResponseWriter, resp *upstream.Response) {
	writeUpstream(w, resp.Status, resp.Header, resp.Body)
}

// writeUpstream copies status and body, keeping the upstream Content-Type
// and assuming JSON when there is none.
func writeUpstream(w http.ResponseWriter, status int, header http.Header, body []byte) {
	contentType := "application/json"
	if ct := header.Get("Content-Type"); ct != "" {
		contentType = ct
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// relayError writes the status and body of an upstream failure. The cause
// is logged and never sent.
func relayError(w http.ResponseWriter, log *zap.Logger, err error) {
	upErr := upstream.AsError(err)
	if upErr.Err != nil {
		log.Debug("relaying_upstream_error",
			zap.Int("status", upErr.StatusCode()),
			zap.String("error", logger.SanitizeError(upErr.Err)),
		)
	}

	if len(upErr.Body) == 0 {
		respondMessage(w, upErr.StatusCode(), messageUnexpected)
		return
	}
	writeUpstream(w, upErr.StatusCode(), upErr.Header, upErr.Body)
}
