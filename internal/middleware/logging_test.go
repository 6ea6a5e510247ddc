package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		writeBody     bool
		wantStatus    int
	}{
		{name: "GET request", method: "GET", path: "/api/apps", handlerStatus: http.StatusOK, wantStatus: http.StatusOK},
		{name: "POST request", method: "POST", path: "/api/sessions", handlerStatus: http.StatusCreated, wantStatus: http.StatusCreated},
		{name: "404 request", method: "GET", path: "/notfound", handlerStatus: http.StatusNotFound, wantStatus: http.StatusNotFound},
		{name: "implicit 200", method: "GET", path: "/healthz", writeBody: true, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.writeBody {
					_, _ = w.Write([]byte("ok"))
					return
				}
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			RequestID(Logging(zap.New(core))(handler)).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request log, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != int64(tt.wantStatus) {
				t.Errorf("Expected logged status %d, got %v", tt.wantStatus, fields["status_code"])
			}
			if fields["path"] != tt.path {
				t.Errorf("Expected logged path '%s', got %v", tt.path, fields["path"])
			}
			if id, _ := fields["request_id"].(string); id == "" {
				t.Error("Expected request_id to be logged")
			}
		})
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		wantMsg string
	}{
		{name: "rejected sign-in", method: "POST", path: "/api/sessions", status: http.StatusUnauthorized, wantMsg: "sign_in_rejected"},
		{name: "forbidden resource", method: "GET", path: "/api/users", status: http.StatusForbidden, wantMsg: "security_event"},
		{name: "rate limited", method: "POST", path: "/api/sessions", status: http.StatusTooManyRequests, wantMsg: "rate_limit_violation"},
		{name: "ok is silent", method: "GET", path: "/api/apps", status: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			w := httptest.NewRecorder()
			Audit(zap.New(core))(handler).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if tt.wantMsg == "" {
				if logs.Len() != 0 {
					t.Errorf("Expected no audit logs, got %d", logs.Len())
				}
				return
			}
			if logs.FilterMessage(tt.wantMsg).Len() != 1 {
				t.Errorf("Expected one '%s' log, got %v", tt.wantMsg, logs.All())
			}
		})
	}
}
