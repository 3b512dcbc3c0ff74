package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Refresher exchanges a refresh token for a new token pair.
//
// The returned RefreshToken may be empty, in which case the previous one is kept.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Session, error)
}

// Session is the explicitly owned token state shared by all outbound calls.
type Session struct {
	store     TokenStore
	refresher Refresher
	logger    *log.Logger
	group     singleflight.Group

	mu        sync.RWMutex
	tokens    models.Session
	onExpired []func()
}

// New loads the stored tokens and returns a Session bound to store and refresher.
func New(ctx context.Context, store TokenStore, refresher Refresher, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	tokens, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	return &Session{
		store:     store,
		refresher: refresher,
		logger:    shared.WithLogger(logger, "component", "session"),
		tokens:    tokens,
	}, nil
}

// AccessToken returns the current access token, or "" when logged out.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

// Authenticated reports whether an access token is held.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// OnExpired registers fn to run after an irrecoverable refresh failure has cleared the session.
func (s *Session) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpired = append(s.onExpired, fn)
}

// Login replaces the tokens after a completed authorization handshake.
func (s *Session) Login(ctx context.Context, tokens models.Session) error {
	if !tokens.Valid() {
		return fmt.Errorf("%w: empty access token", shared.ErrAuthFailed)
	}

	if err := s.store.Save(ctx, tokens); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	return nil
}

// Logout clears the tokens without firing the expiry callbacks.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = models.Session{}
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// Refresh returns an access token newer than stale, refreshing at most once across concurrent callers.
//
// stale is the token the caller's rejected request carried.
func (s *Session) Refresh(ctx context.Context, stale string) (string, error) {
	current := s.AccessToken()
	if current == "" {
		return "", fmt.Errorf("%w: %w", shared.ErrAuthExpired, shared.ErrNotAuthenticated)
	}
	if current != stale {
		return current, nil
	}

	v, err, joined := s.group.Do(refreshKey, func() (any, error) {
		s.mu.RLock()
		current := s.tokens
		s.mu.RUnlock()

		// another flight finished between our check and Do
		if current.AccessToken == "" {
			return nil, fmt.Errorf("%w: %w", shared.ErrAuthExpired, shared.ErrNotAuthenticated)
		}
		if current.AccessToken != stale {
			return current.AccessToken, nil
		}

		if current.RefreshToken == "" {
			return nil, s.expire(ctx, shared.ErrNoRefreshToken)
		}

		s.logger.Debug("refreshing access token")
		next, err := s.refresher.Refresh(context.WithoutCancel(ctx), current.RefreshToken)
		if err != nil {
			return nil, s.expire(ctx, err)
		}
		if next.RefreshToken == "" {
			next.RefreshToken = current.RefreshToken
		}

		s.mu.Lock()
		s.tokens = next
		s.mu.Unlock()

		if err := s.store.Save(context.WithoutCancel(ctx), next); err != nil {
			s.logger.Warn("refreshed tokens not persisted", "error", err)
		}

		s.logger.Info("access token refreshed")
		return next.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	if joined {
		s.logger.Debug("joined in-flight refresh")
	}
	return v.(string), nil
}

// Revoke handles a rejection of token after a refresh already succeeded.
//
// The session is cleared only while token is still current, so concurrent rejections signal once.
func (s *Session) Revoke(ctx context.Context, token string) error {
	cause := fmt.Errorf("access token rejected after refresh")
	if current := s.AccessToken(); current == "" || current != token {
		return fmt.Errorf("%w: %w", shared.ErrAuthExpired, cause)
	}
	return s.expire(ctx, cause)
}

// expire clears the session, signals listeners and returns the AuthError for all waiters.
func (s *Session) expire(ctx context.Context, cause error) error {
	s.mu.Lock()
	s.tokens = models.Session{}
	listeners := append([]func(){}, s.onExpired...)
	s.mu.Unlock()

	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to clear token store", "error", err)
	}

	s.logger.Error("session expired", "error", cause)
	for _, fn := range listeners {
		fn()
	}

	return fmt.Errorf("%w: %w", shared.ErrAuthExpired, cause)
}
