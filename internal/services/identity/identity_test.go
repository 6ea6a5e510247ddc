package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ametnes/nesis-console/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type testSigner struct {
	key jwk.Key
	set jwk.Set
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("Failed to build JWK: %v", err)
	}
	_ = key.Set(jwk.KeyIDKey, "test-kid")
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)

	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		t.Fatalf("Failed to derive public key: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("Failed to add key: %v", err)
	}
	return &testSigner{key: key, set: set}
}

func (s *testSigner) sign(t *testing.T, claims map[string]any) string {
	t.Helper()

	tok := jwt.New()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			t.Fatalf("Failed to set claim %s: %v", k, err)
		}
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.key))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return string(signed)
}

func (s *testSigner) jwksServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.set)
	}))
	t.Cleanup(server.Close)
	return server
}

func validClaims() map[string]any {
	return map[string]any{
		"iss":   "https://accounts.google.com",
		"aud":   "google-client",
		"sub":   "1234",
		"email": "jane@example.com",
		"name":  "Jane Doe",
		"iat":   time.Now().Add(-time.Minute),
		"exp":   time.Now().Add(time.Hour),

		"email_verified": true,
	}
}

func TestAzureVerifier_Verify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		result      *models.AzureTokenResult
		graphStatus int
		graphBody   string
		wantErr     bool
		wantCall    bool
	}{
		{
			name: "mail matches username",
			result: &models.AzureTokenResult{
				AccessToken: "good-token",
				Account:     models.AzureAccount{Username: "jane@example.com", Name: "Jane"},
			},
			graphStatus: http.StatusOK,
			graphBody:   `{"mail":"jane@example.com","displayName":"Jane"}`,
			wantCall:    true,
		},
		{
			name: "mail differs from username",
			result: &models.AzureTokenResult{
				AccessToken: "good-token",
				Account:     models.AzureAccount{Username: "jane@example.com", Name: "Jane"},
			},
			graphStatus: http.StatusOK,
			graphBody:   `{"mail":"mallory@example.com"}`,
			wantErr:     true,
			wantCall:    true,
		},
		{
			name: "mail differs only by case",
			result: &models.AzureTokenResult{
				AccessToken: "good-token",
				Account:     models.AzureAccount{Username: "Jane@Example.com"},
			},
			graphStatus: http.StatusOK,
			graphBody:   `{"mail":"jane@example.com"}`,
			wantErr:     true,
			wantCall:    true,
		},
		{
			name: "graph rejects token",
			result: &models.AzureTokenResult{
				AccessToken: "bad-token",
				Account:     models.AzureAccount{Username: "jane@example.com"},
			},
			graphStatus: http.StatusUnauthorized,
			graphBody:   `{"error":{"code":"InvalidAuthenticationToken"}}`,
			wantErr:     true,
			wantCall:    true,
		},
		{
			name:     "missing access token never reaches graph",
			result:   &models.AzureTokenResult{Account: models.AzureAccount{Username: "jane@example.com"}},
			wantErr:  true,
			wantCall: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls int32
			graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				if r.URL.Path != "/v1.0/me" {
					t.Errorf("Expected /v1.0/me, got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer "+tt.result.AccessToken {
					t.Errorf("Unexpected Authorization header '%s'", got)
				}
				w.WriteHeader(tt.graphStatus)
				_, _ = w.Write([]byte(tt.graphBody))
			}))
			defer graph.Close()

			verifier := NewAzureVerifier(graph.URL+"/", NewHTTPClient(5*time.Second))
			id, err := verifier.Verify(context.Background(), tt.result)

			if (atomic.LoadInt32(&calls) > 0) != tt.wantCall {
				t.Errorf("Graph called = %v, want %v", calls > 0, tt.wantCall)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("Expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id.Email != tt.result.Account.Username || id.Name != tt.result.Account.Name {
				t.Errorf("Unexpected identity %+v", id)
			}
		})
	}
}

func TestGoogleVerifier_Verify(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	other := newTestSigner(t)

	tests := []struct {
		name      string
		code      string
		idToken   func(t *testing.T) string
		tokenCode int
		wantErr   bool
	}{
		{
			name:      "valid id token",
			code:      "auth-code",
			idToken:   func(t *testing.T) string { return signer.sign(t, validClaims()) },
			tokenCode: http.StatusOK,
		},
		{
			name: "issuer without scheme",
			code: "auth-code",
			idToken: func(t *testing.T) string {
				c := validClaims()
				c["iss"] = "accounts.google.com"
				return signer.sign(t, c)
			},
			tokenCode: http.StatusOK,
		},
		{
			name: "wrong audience",
			code: "auth-code",
			idToken: func(t *testing.T) string {
				c := validClaims()
				c["aud"] = "someone-else"
				return signer.sign(t, c)
			},
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name: "wrong issuer",
			code: "auth-code",
			idToken: func(t *testing.T) string {
				c := validClaims()
				c["iss"] = "https://evil.example.com"
				return signer.sign(t, c)
			},
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name: "expired",
			code: "auth-code",
			idToken: func(t *testing.T) string {
				c := validClaims()
				c["exp"] = time.Now().Add(-time.Hour)
				return signer.sign(t, c)
			},
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name:      "signed by unknown key",
			code:      "auth-code",
			idToken:   func(t *testing.T) string { return other.sign(t, validClaims()) },
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name: "unverified email",
			code: "auth-code",
			idToken: func(t *testing.T) string {
				c := validClaims()
				c["email_verified"] = false
				return signer.sign(t, c)
			},
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name: "email_verified missing",
			code: "auth-code",
			idToken: func(t *testing.T) string {
				c := validClaims()
				delete(c, "email_verified")
				return signer.sign(t, c)
			},
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name:      "no id token in response",
			code:      "auth-code",
			idToken:   func(t *testing.T) string { return "" },
			tokenCode: http.StatusOK,
			wantErr:   true,
		},
		{
			name:      "exchange rejected",
			code:      "auth-code",
			idToken:   func(t *testing.T) string { return "" },
			tokenCode: http.StatusBadRequest,
			wantErr:   true,
		},
		{
			name:    "empty code",
			code:    "",
			idToken: func(t *testing.T) string { return "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idToken := tt.idToken(t)
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("Failed to parse form: %v", err)
				}
				if r.PostForm.Get("grant_type") != "authorization_code" {
					t.Errorf("Expected authorization_code grant, got '%s'", r.PostForm.Get("grant_type"))
				}
				if r.PostForm.Get("client_id") != "google-client" || r.PostForm.Get("client_secret") != "google-secret" {
					t.Errorf("Expected client credentials in form")
				}
				if r.PostForm.Get("code") != tt.code {
					t.Errorf("Expected code '%s', got '%s'", tt.code, r.PostForm.Get("code"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.tokenCode)
				if tt.tokenCode != http.StatusOK {
					_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
					return
				}
				body := map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600}
				if idToken != "" {
					body["id_token"] = idToken
				}
				_ = json.NewEncoder(w).Encode(body)
			}))
			defer tokenServer.Close()

			httpClient := NewHTTPClient(5 * time.Second)
			jwksServer := signer.jwksServer(t, nil)
			verifier := NewGoogleVerifier(GoogleConfig{
				ClientID:     "google-client",
				ClientSecret: "google-secret",
				RedirectURI:  "http://localhost:3000/",
				TokenURL:     tokenServer.URL,
			}, NewJWKSManager(jwksServer.URL, httpClient), httpClient)

			id, err := verifier.Verify(context.Background(), tt.code)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("Expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id.Email != "jane@example.com" || id.Name != "Jane Doe" {
				t.Errorf("Unexpected identity %+v", id)
			}
		})
	}
}

func TestJWKSManager_Caches(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	var hits int32
	server := signer.jwksServer(t, &hits)

	manager := NewJWKSManager(server.URL, NewHTTPClient(5*time.Second))
	for i := 0; i < 3; i++ {
		keys, err := manager.Keys(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if keys.Len() != 1 {
			t.Errorf("Expected 1 key, got %d", keys.Len())
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected JWKS fetched once, got %d", got)
	}
}

func TestJWKSManager_FetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	manager := NewJWKSManager(server.URL, NewHTTPClient(5*time.Second))
	if _, err := manager.Keys(context.Background()); err == nil {
		t.Error("Expected error for failing JWKS endpoint")
	}
}
