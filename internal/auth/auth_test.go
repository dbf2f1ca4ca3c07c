package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/model"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	token     model.TokenState
	loads     int
	saves     []model.TokenState
	saveErr   error
	credsErr  error
	credLoads int
}

func (s *fakeStore) LoadCredentials(context.Context) (model.Credentials, error) {
	s.credLoads++
	if s.credsErr != nil {
		return model.Credentials{}, s.credsErr
	}
	return model.Credentials{ClientGUID: "guid", ClientSecret: "secret"}, nil
}

func (s *fakeStore) LoadToken(context.Context) (model.TokenState, error) {
	s.loads++
	return s.token, nil
}

func (s *fakeStore) SaveToken(_ context.Context, state model.TokenState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves = append(s.saves, state)
	return nil
}

type fakeAuthorizer struct {
	calls        int
	refreshToken string
	creds        model.Credentials
	err          error
}

func (a *fakeAuthorizer) Authorize(_ context.Context, creds model.Credentials, refreshToken string) (model.TokenState, error) {
	a.calls++
	a.refreshToken = refreshToken
	a.creds = creds
	if a.err != nil {
		return model.TokenState{}, a.err
	}
	return model.TokenState{
		AccessToken:   "fresh-access",
		RefreshToken:  "fresh-refresh",
		RefreshExpiry: model.NewUnixTime(now.Add(24 * time.Hour)),
	}, nil
}

func token(expiry time.Time) model.TokenState {
	return model.TokenState{
		AccessToken:   "cached-access",
		RefreshToken:  "cached-refresh",
		RefreshExpiry: model.NewUnixTime(expiry),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		state model.TokenState
		want  State
	}{
		{"far future", token(now.Add(time.Hour)), Valid},
		{"inside skew", token(now.Add(4 * time.Minute)), Expired},
		{"exactly at skew", token(now.Add(5 * time.Minute)), Expired},
		{"past", token(now.Add(-time.Hour)), Expired},
		{"absent", model.TokenState{}, Expired},
		{"no expiry", model.TokenState{AccessToken: "a", RefreshToken: "r"}, Expired},
		{"no refresh token", model.TokenState{AccessToken: "a", RefreshExpiry: model.NewUnixTime(now.Add(time.Hour))}, Expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.state, now, DefaultSkew))
		})
	}
}

func TestEnsureValidTokenCached(t *testing.T) {
	store := &fakeStore{token: token(now.Add(time.Hour))}
	authorizer := &fakeAuthorizer{}
	m := NewManager(store, authorizer, WithClock(func() time.Time { return now }))

	for range 3 {
		got, err := m.EnsureValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cached-access", got)
	}

	assert.Equal(t, 0, authorizer.calls)
	assert.Equal(t, 1, store.loads)
	assert.Empty(t, store.saves)
}

func TestEnsureValidTokenExpired(t *testing.T) {
	store := &fakeStore{token: token(now.Add(-time.Minute))}
	authorizer := &fakeAuthorizer{}
	m := NewManager(store, authorizer, WithClock(func() time.Time { return now }))

	got, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", got)
	assert.Equal(t, 1, authorizer.calls)
	assert.Equal(t, "cached-refresh", authorizer.refreshToken)
	require.Len(t, store.saves, 1)
	assert.Equal(t, "fresh-refresh", store.saves[0].RefreshToken)

	// The refreshed token is memoized.
	got, err = m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", got)
	assert.Equal(t, 1, authorizer.calls)
}

func TestEnsureValidTokenInitial(t *testing.T) {
	store := &fakeStore{}
	authorizer := &fakeAuthorizer{}
	m := NewManager(store, authorizer, WithClock(func() time.Time { return now }))

	got, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", got)
	assert.Equal(t, 1, authorizer.calls)
	assert.Empty(t, authorizer.refreshToken)
	assert.Len(t, store.saves, 1)
}

func TestEnsureValidTokenPreloadedCredentials(t *testing.T) {
	store := &fakeStore{credsErr: errors.New("must not be read")}
	authorizer := &fakeAuthorizer{}
	creds := model.Credentials{ClientGUID: "preloaded", ClientSecret: "s"}
	m := NewManager(store, authorizer, WithCredentials(creds), WithClock(func() time.Time { return now }))

	got, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", got)
	assert.Equal(t, creds, authorizer.creds)
	assert.Zero(t, store.credLoads)
}

func TestEnsureValidTokenFailures(t *testing.T) {
	t.Run("authorizer fails", func(t *testing.T) {
		store := &fakeStore{token: token(now.Add(-time.Minute))}
		authorizer := &fakeAuthorizer{err: errors.New("connection refused")}
		m := NewManager(store, authorizer, WithClock(func() time.Time { return now }))

		_, err := m.EnsureValidToken(context.Background())
		assert.True(t, apperr.Is(err, apperr.KindAuth))
		assert.Equal(t, 1, authorizer.calls)
		assert.Empty(t, store.saves)
	})

	t.Run("persist fails", func(t *testing.T) {
		store := &fakeStore{saveErr: errors.New("disk full")}
		m := NewManager(store, &fakeAuthorizer{}, WithClock(func() time.Time { return now }))

		_, err := m.EnsureValidToken(context.Background())
		assert.True(t, apperr.Is(err, apperr.KindAuth))
	})

	t.Run("credentials missing", func(t *testing.T) {
		store := &fakeStore{credsErr: apperr.Config("loading credentials", errors.New("not found"))}
		authorizer := &fakeAuthorizer{}
		m := NewManager(store, authorizer, WithClock(func() time.Time { return now }))

		_, err := m.EnsureValidToken(context.Background())
		assert.True(t, apperr.Is(err, apperr.KindConfig))
		assert.Equal(t, 0, authorizer.calls)
	})
}
