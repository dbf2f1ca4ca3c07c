// Package auth keeps a valid AWQAF access token available for a run.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/model"
)

// State is the classification of a cached token.
type State int

const (
	Expired State = iota
	Valid
)

func (s State) String() string {
	if s == Valid {
		return "valid"
	}
	return "expired"
}

// DefaultSkew is subtracted from the refresh expiry before a token is
// considered usable.
const DefaultSkew = 5 * time.Minute

// Classify reports whether state can be used at now. A token is valid only
// when both tokens are present and now is before expiry minus skew.
func Classify(state model.TokenState, now time.Time, skew time.Duration) State {
	if state.AccessToken == "" || state.RefreshToken == "" || state.RefreshExpiry == nil {
		return Expired
	}
	if now.Before(state.RefreshExpiry.Add(-skew)) {
		return Valid
	}
	return Expired
}

// Authorizer exchanges credentials (and a refresh token, if any) for a new
// token state.
type Authorizer interface {
	Authorize(ctx context.Context, creds model.Credentials, refreshToken string) (model.TokenState, error)
}

// TokenStore is the credential and token persistence the manager needs.
type TokenStore interface {
	LoadCredentials(ctx context.Context) (model.Credentials, error)
	LoadToken(ctx context.Context) (model.TokenState, error)
	SaveToken(ctx context.Context, state model.TokenState) error
}

// Manager hands out access tokens, refreshing at most once per expiry.
type Manager struct {
	store      TokenStore
	authorizer Authorizer
	skew       time.Duration
	now        func() time.Time
	creds      *model.Credentials

	mu     sync.Mutex
	state  model.TokenState
	loaded bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSkew overrides DefaultSkew.
func WithSkew(skew time.Duration) Option {
	return func(m *Manager) { m.skew = skew }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCredentials supplies credentials loaded at process start, so the
// manager never reads them from the store.
func WithCredentials(creds model.Credentials) Option {
	return func(m *Manager) { m.creds = &creds }
}

// NewManager creates a token manager.
func NewManager(store TokenStore, authorizer Authorizer, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		authorizer: authorizer,
		skew:       DefaultSkew,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValidToken returns a usable access token. A valid cached token is
// returned without any network call. Otherwise the authorizer is called
// exactly once and the new state is persisted before it is returned.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		state, err := m.store.LoadToken(ctx)
		if err != nil {
			return "", err
		}
		m.state = state
		m.loaded = true
	}

	if Classify(m.state, m.now(), m.skew) == Valid {
		return m.state.AccessToken, nil
	}

	log.Info().Bool("initial", m.state.RefreshToken == "").Msg("refreshing access token")

	var creds model.Credentials
	if m.creds != nil {
		creds = *m.creds
	} else {
		c, err := m.store.LoadCredentials(ctx)
		if err != nil {
			return "", err
		}
		creds = c
	}

	state, err := m.authorizer.Authorize(ctx, creds, m.state.RefreshToken)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			return "", err
		}
		return "", apperr.Auth("refreshing token", err)
	}
	if state.AccessToken == "" {
		return "", apperr.Auth("refreshing token", errors.New("authorization returned no access token"))
	}

	if err := m.store.SaveToken(ctx, state); err != nil {
		return "", apperr.Auth("persisting token", err)
	}
	m.state = state

	ev := log.Info()
	if state.RefreshExpiry != nil {
		ev = ev.Time("expires", state.RefreshExpiry.Time)
	}
	ev.Msg("access token refreshed")

	return state.AccessToken, nil
}
