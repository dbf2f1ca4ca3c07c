// Package credentials loads the AWQAF client credentials and persists the
// cached token state between runs.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/model"
	"prayer-times-ics/internal/store"
)

// Store reads the static credentials file and reads and writes the token
// cache through a store.Store.
type Store struct {
	configPath string
	tokens     store.Store
	tokenKey   string
}

// New creates a credential store. configPath is a local JSON file holding
// {clientGuid, clientSecret}; the token state lives under tokenKey in tokens.
func New(configPath string, tokens store.Store, tokenKey string) *Store {
	return &Store{
		configPath: configPath,
		tokens:     tokens,
		tokenKey:   tokenKey,
	}
}

// SplitTokenPath turns a token file path such as "state/auth_token.json"
// into the store directory and key ("state", "auth_token").
func SplitTokenPath(path string) (dir, key string) {
	dir = filepath.Dir(path)
	key = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return dir, key
}

// LoadCredentials reads the client credentials. A missing or incomplete file
// is a configuration error.
func (s *Store) LoadCredentials(_ context.Context) (model.Credentials, error) {
	const op = "loading credentials"

	data, err := os.ReadFile(s.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return model.Credentials{}, apperr.Config(op, fmt.Errorf("config file %s not found", s.configPath))
	}
	if err != nil {
		return model.Credentials{}, apperr.Config(op, err)
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return model.Credentials{}, apperr.Config(op, fmt.Errorf("parsing %s: %w", s.configPath, err))
	}
	if creds.ClientGUID == "" || creds.ClientSecret == "" {
		return model.Credentials{}, apperr.Config(op, fmt.Errorf("%s must set clientGuid and clientSecret", s.configPath))
	}
	return creds, nil
}

// LoadToken reads the cached token state. An absent cache yields the zero
// state, which the token manager treats as expired. A cache that exists but
// cannot be decoded is a configuration error.
func (s *Store) LoadToken(ctx context.Context) (model.TokenState, error) {
	var state model.TokenState
	err := s.tokens.GetJSON(ctx, s.tokenKey, &state)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().Str("key", s.tokenKey).Msg("no cached token")
		return model.TokenState{}, nil
	}
	if err != nil {
		return model.TokenState{}, apperr.Config("loading token cache", err)
	}
	return state, nil
}

// SaveToken replaces the cached token state.
func (s *Store) SaveToken(ctx context.Context, state model.TokenState) error {
	if err := s.tokens.SetJSON(ctx, s.tokenKey, state); err != nil {
		return fmt.Errorf("saving token cache: %w", err)
	}
	log.Debug().Str("key", s.tokenKey).Msg("token cache updated")
	return nil
}
