package client

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAuthenticated is returned when no token is available and the
// session cannot obtain a fresh one.
var ErrNotAuthenticated = errors.New("not authenticated")

// RefreshFunc exchanges the current credentials for a fresh access token.
type RefreshFunc func(ctx context.Context) (string, error)

// Session owns the access token for one signed-in admin. Every API call
// goes through it instead of reading ambient global state, and the refresh
// lifecycle lives here rather than in the call sites.
type Session struct {
	mu      sync.Mutex
	token   string
	refresh RefreshFunc
}

func NewSession(token string, refresh RefreshFunc) *Session {
	return &Session{token: token, refresh: refresh}
}

// Token returns the current access token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Refresh obtains and stores a fresh token. Without a refresh hook the
// session cannot recover and the caller must surface a fatal auth error.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refresh
	s.mu.Unlock()

	if refresh == nil {
		return ErrNotAuthenticated
	}
	token, err := refresh(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}
