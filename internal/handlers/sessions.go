package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/ametnes/nesis-console/internal/request"
	"github.com/ametnes/nesis-console/internal/upstream"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionExchanger creates and deletes core API sessions.
type SessionExchanger interface {
	Create(ctx context.Context, body []byte) (*upstream.Response, error)
	Delete(ctx context.Context, authorization string) (*upstream.Response, error)
}

// SessionHandler handles sign-in and sign-out
type SessionHandler struct {
	sessions SessionExchanger
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionExchanger, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers session routes on the given router.
// createMiddleware wraps sign-in only (rate limiting).
func (h *SessionHandler) RegisterRoutes(r *mux.Router, createMiddleware ...mux.MiddlewareFunc) {
	var create http.Handler = http.HandlerFunc(h.CreateSession)
	for i := len(createMiddleware) - 1; i >= 0; i-- {
		create = createMiddleware[i](create)
	}
	r.Handle("/sessions", create).Methods("POST")
	r.HandleFunc("/sessions", h.DeleteSession).Methods("DELETE")
}

// CreateSession exchanges a sign-in request for a core API session
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request. session not supplied")
		return
	}

	resp, err := h.sessions.Create(r.Context(), body)
	if err != nil {
		relayError(w, h.logger, err)
		return
	}
	relay(w, resp)
}

// DeleteSession relays a sign-out with the caller's credentials
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sessions.Delete(r.Context(), request.Authorization(r))
	if err != nil {
		relayError(w, h.logger, err)
		return
	}
	relay(w, resp)
}
