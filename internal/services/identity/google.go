package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ametnes/nesis-console/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleConfig configures a GoogleVerifier.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
}

// GoogleVerifier redeems an authorization code and verifies the returned ID token.
type GoogleVerifier struct {
	oauth      *oauth2.Config
	jwks       *JWKSManager
	httpClient *http.Client
}

// NewGoogleVerifier creates a verifier for the given OAuth client
func NewGoogleVerifier(cfg GoogleConfig, jwks *JWKSManager, httpClient *http.Client) *GoogleVerifier {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &GoogleVerifier{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		jwks:       jwks,
		httpClient: httpClient,
	}
}

// Verify exchanges code for tokens and returns the identity in the ID token.
func (v *GoogleVerifier) Verify(ctx context.Context, code string) (*models.Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", ErrInvalidToken)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %v", ErrInvalidToken, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", ErrInvalidToken)
	}

	claims, err := v.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	return &models.Identity{Email: claims.Email, Name: claims.Name}, nil
}

// VerifyIDToken checks signature, expiry, audience and issuer of an ID token.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*models.IDTokenClaims, error) {
	keys, err := v.jwks.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	token, err := jwt.Parse([]byte(rawIDToken),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithAudience(v.oauth.ClientID),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse/verify id token: %v", ErrInvalidToken, err)
	}

	if !googleIssuers[token.Issuer()] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, token.Issuer())
	}

	claims := &models.IDTokenClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	if email, ok := token.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	if name, ok := token.Get("name"); ok {
		claims.Name, _ = name.(string)
	}
	if verified, ok := token.Get("email_verified"); ok {
		claims.EmailVerified, _ = verified.(bool)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: id token has no email claim", ErrInvalidToken)
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email %q is not verified", ErrInvalidToken, claims.Email)
	}
	return claims, nil
}
