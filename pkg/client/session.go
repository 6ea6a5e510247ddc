package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoSession is returned by stores holding no session.
var ErrNoSession = errors.New("no session")

// Session is the signed-in state kept by the client.
type Session struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// SessionStore persists the current session.
type SessionStore interface {
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, ErrNoSession
	}
	copied := *s.session
	return &copied, nil
}

func (s *MemoryStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.session = &copied
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

// FileStore keeps the session in a JSON file readable only by its owner.
type FileStore struct {
	Path string
}

func (s *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

func (s *FileStore) Save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// AzureTokenResult is the MSAL result forwarded for Azure sign-in.
type AzureTokenResult struct {
	AccessToken string       `json:"accessToken"`
	Account     AzureAccount `json:"account"`
}

// AzureAccount is the account part of an AzureTokenResult.
type AzureAccount struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.signIn(ctx, map[string]string{"email": email, "password": password}, email)
}

// SignInWithAzure signs in with an Azure AD token result.
func (c *Client) SignInWithAzure(ctx context.Context, result AzureTokenResult) (*Session, error) {
	return c.signIn(ctx, map[string]any{"azure": result}, result.Account.Username)
}

// SignInWithGoogle signs in with a Google authorization code.
func (c *Client) SignInWithGoogle(ctx context.Context, code string) (*Session, error) {
	return c.signIn(ctx, map[string]string{"google": code}, "")
}

func (c *Client) signIn(ctx context.Context, payload any, email string) (*Session, error) {
	var resp sessionResponse
	if err := c.Post(ctx, "sessions", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("session response has no token")
	}
	if resp.Email != "" {
		email = resp.Email
	}

	session := &Session{Email: email, Token: resp.Token}
	if err := c.Store.Save(session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// SignOut deletes the server session, ignoring failures, and clears the store.
func (c *Client) SignOut(ctx context.Context) error {
	_ = c.Delete(ctx, "sessions", nil, nil)
	return c.Store.Clear()
}
