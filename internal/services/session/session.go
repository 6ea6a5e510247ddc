// Package session turns a browser sign-in request into a core API session.
//
// Password sign-ins are forwarded untouched. Azure and Google assertions
// are verified here first and replaced by a minimal payload carrying the
// shared trust token, which the core API accepts in place of a password.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ametnes/nesis-console/internal/config"
	"github.com/ametnes/nesis-console/internal/logger"
	"github.com/ametnes/nesis-console/internal/models"
	"github.com/ametnes/nesis-console/internal/upstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ametnes/nesis-console/internal/services/session")

const (
	MessageSessionNotSupplied = "Invalid request. session not supplied"
	MessageReservedAttribute  = "Invalid request. Reserved session attribute supplied"
	// MessageInvalidToken is returned for Google failures too.
	MessageInvalidToken = "Invalid azure access token"

	sessionsPath = "/sessions"
)

// AzureVerifier verifies an MSAL token result.
type AzureVerifier interface {
	Verify(ctx context.Context, result *models.AzureTokenResult) (*models.Identity, error)
}

// GoogleVerifier redeems and verifies a Google authorization code.
type GoogleVerifier interface {
	Verify(ctx context.Context, code string) (*models.Identity, error)
}

// Upstream is the part of the core API client the exchanger needs.
type Upstream interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Exchanger creates and deletes core API sessions.
type Exchanger struct {
	upstream Upstream
	trust    config.TrustToken
	azure    AzureVerifier
	google   GoogleVerifier
	logger   *zap.Logger
}

// NewExchanger creates an Exchanger. A nil verifier disables that provider:
// its assertions are rejected as invalid.
func NewExchanger(up Upstream, trust config.TrustToken, azure AzureVerifier, google GoogleVerifier, log *zap.Logger) *Exchanger {
	return &Exchanger{
		upstream: up,
		trust:    trust,
		azure:    azure,
		google:   google,
		logger:   log,
	}
}

// Create validates body, verifies any OAuth assertion in it and posts the
// resulting session request to the core API. Failures are *upstream.Error.
func (e *Exchanger) Create(ctx context.Context, body []byte) (*upstream.Response, error) {
	ctx, span := tracer.Start(ctx, "session.create")
	defer span.End()

	resp, provider, err := e.create(ctx, body)
	span.SetAttributes(attribute.String("session.provider", provider))
	if err != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", upstream.AsError(err).StatusCode()))
		span.SetStatus(codes.Error, "session creation failed")
		return nil, err
	}
	return resp, nil
}

func (e *Exchanger) create(ctx context.Context, body []byte) (*upstream.Response, string, error) {
	var req models.SessionRequest
	if err := json.Unmarshal(body, &req); err != nil || req == nil {
		return nil, "", upstream.NewError(http.StatusBadRequest, MessageSessionNotSupplied, err)
	}
	if _, forged := req[e.trust.Key]; forged {
		e.logger.Warn("reserved_session_attribute_supplied")
		return nil, "", upstream.NewError(http.StatusBadRequest, MessageReservedAttribute, nil)
	}

	var (
		identity *models.Identity
		provider string
		err      error
	)
	switch {
	case req.Has(models.SessionKeyAzure):
		provider = models.SessionKeyAzure
		identity, err = e.verifyAzure(ctx, req[models.SessionKeyAzure])
	case req.Has(models.SessionKeyGoogle):
		provider = models.SessionKeyGoogle
		identity, err = e.verifyGoogle(ctx, req[models.SessionKeyGoogle])
	default:
		provider = "password"
		e.logger.Info("posting_session", zap.String("provider", provider))
		resp, err := e.upstream.Do(ctx, upstream.Request{
			Method: http.MethodPost,
			Path:   sessionsPath,
			Body:   body,
		})
		if err != nil {
			e.logSessionFailure(provider, err)
			return nil, provider, upstream.AsError(err)
		}
		return resp, provider, nil
	}
	if err != nil {
		e.logger.Warn("identity_verification_failed",
			zap.String("provider", provider),
			zap.String("error", logger.SanitizeError(err)),
		)
		return nil, provider, upstream.NewError(http.StatusUnauthorized, MessageInvalidToken, err)
	}

	payload, err := json.Marshal(map[string]string{
		"email":     identity.Email,
		"name":      identity.Name,
		e.trust.Key: e.trust.Value,
	})
	if err != nil {
		return nil, provider, upstream.NewError(http.StatusInternalServerError, "Unexpected error", err)
	}

	e.logger.Info("posting_session", zap.String("provider", provider))
	resp, err := e.upstream.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   sessionsPath,
		Body:   payload,
	})
	if err != nil {
		e.logSessionFailure(provider, err)
		return nil, provider, upstream.AsError(err)
	}

	resp.Body = withIdentity(resp.Body, identity)
	return resp, provider, nil
}

// Delete relays a sign-out to the core API with the caller's credentials.
func (e *Exchanger) Delete(ctx context.Context, authorization string) (*upstream.Response, error) {
	resp, err := e.upstream.Do(ctx, upstream.Request{
		Method:        http.MethodDelete,
		Path:          sessionsPath,
		Authorization: authorization,
	})
	if err != nil {
		e.logger.Warn("deleting_session_failed", zap.String("error", logger.SanitizeError(err)))
		return nil, upstream.AsError(err)
	}
	return resp, nil
}

func (e *Exchanger) verifyAzure(ctx context.Context, raw json.RawMessage) (*models.Identity, error) {
	if e.azure == nil {
		return nil, errors.New("azure sign-in is not enabled")
	}
	var result models.AzureTokenResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return e.azure.Verify(ctx, &result)
}

func (e *Exchanger) verifyGoogle(ctx context.Context, raw json.RawMessage) (*models.Identity, error) {
	if e.google == nil {
		return nil, errors.New("google sign-in is not enabled")
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return nil, err
	}
	return e.google.Verify(ctx, code)
}

func (e *Exchanger) logSessionFailure(provider string, err error) {
	upErr := upstream.AsError(err)
	e.logger.Warn("posting_session_failed",
		zap.String("provider", provider),
		zap.Int("status", upErr.StatusCode()),
		zap.String("error", logger.SanitizeError(err)),
	)
}

// withIdentity overwrites email and name in a JSON object body. Anything
// else is returned unchanged.
func withIdentity(body []byte, identity *models.Identity) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return body
	}
	email, _ := json.Marshal(identity.Email)
	name, _ := json.Marshal(identity.Name)
	obj["email"] = email
	obj["name"] = name
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}
