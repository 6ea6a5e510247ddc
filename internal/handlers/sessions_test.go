package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ametnes/nesis-console/internal/config"
	"github.com/ametnes/nesis-console/internal/services/session"
	"github.com/ametnes/nesis-console/internal/upstream"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newSessionRouter(serverURL string) *mux.Router {
	up := upstream.NewClient(serverURL, 5*time.Second, zap.NewNop())
	ex := session.NewExchanger(up, config.TrustToken{Key: "tk", Value: "tv"}, nil, nil, zap.NewNop())

	r := mux.NewRouter()
	NewSessionHandler(ex, zap.NewNop()).RegisterRoutes(r.PathPrefix("/api").Subrouter())
	return r
}

func TestSessionHandler_CreateSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		coreStatus  int
		coreBody    string
		wantStatus  int
		wantBody    string
		wantMessage string
		wantCalls   int
	}{
		{
			name:       "password relayed",
			body:       `{"email":"a@b.c","password":"p"}`,
			coreStatus: http.StatusOK,
			coreBody:   `{"token":"tok"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"token":"tok"}`,
			wantCalls:  1,
		},
		{
			name:       "core rejects password",
			body:       `{"email":"a@b.c","password":"wrong"}`,
			coreStatus: http.StatusUnauthorized,
			coreBody:   `{"message":"Invalid credentials"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"message":"Invalid credentials"}`,
			wantCalls:  1,
		},
		{
			name:        "empty body",
			body:        "",
			wantStatus:  http.StatusBadRequest,
			wantMessage: session.MessageSessionNotSupplied,
		},
		{
			name:        "forged trust key",
			body:        `{"email":"a@b.c","tk":"tv"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: session.MessageReservedAttribute,
		},
		{
			name:        "azure disabled",
			body:        `{"azure":{"accessToken":"t","account":{"username":"a@b.c"}}}`,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: session.MessageInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, server := newFakeCore(t, tt.coreStatus, tt.coreBody)
			router := newSessionRouter(server.URL)

			req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("Expected body '%s', got '%s'", tt.wantBody, w.Body.String())
			}
			if tt.wantMessage != "" {
				var msg map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
					t.Fatalf("Failed to decode body: %v", err)
				}
				if msg["message"] != tt.wantMessage {
					t.Errorf("Expected message '%s', got '%s'", tt.wantMessage, msg["message"])
				}
			}
			if n := len(core.recorded()); n != tt.wantCalls {
				t.Errorf("Expected %d core calls, got %d", tt.wantCalls, n)
			}
		})
	}
}

func TestSessionHandler_DeleteSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		coreStatus int
		coreBody   string
	}{
		{name: "success", coreStatus: http.StatusOK, coreBody: `{}`},
		{name: "failure relayed", coreStatus: http.StatusUnauthorized, coreBody: `{"message":"expired"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, server := newFakeCore(t, tt.coreStatus, tt.coreBody)
			router := newSessionRouter(server.URL)

			req := httptest.NewRequest("DELETE", "/api/sessions", nil)
			req.Header.Set("Authorization", "Bearer tok")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.coreStatus || w.Body.String() != tt.coreBody {
				t.Errorf("Expected %d %s, got %d %s", tt.coreStatus, tt.coreBody, w.Code, w.Body.String())
			}
			calls := core.recorded()
			if len(calls) != 1 || calls[0].method != "DELETE" || calls[0].path != "/sessions" || calls[0].auth != "Bearer tok" {
				t.Errorf("Unexpected core calls %+v", calls)
			}
		})
	}
}
