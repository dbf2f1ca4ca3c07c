package generator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/auth"
	"prayer-times-ics/internal/awqaf"
	"prayer-times-ics/internal/cache"
	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/credentials"
	"prayer-times-ics/internal/firestore"
	"prayer-times-ics/internal/publish"
	"prayer-times-ics/internal/store"
)

// SetupOptions select optional parts of the pipeline.
type SetupOptions struct {
	// NoCache disables the response cache.
	NoCache bool
	// ArchiveFallback serves archived days when the API is unreachable.
	ArchiveFallback bool
}

// FromConfig wires the credential store, token manager, API client, cache,
// archive and publisher described by cfg. Credentials are loaded here, so a
// missing or malformed config file fails before any network call. The
// returned close function releases cloud clients.
func FromConfig(ctx context.Context, cfg *config.Config, opts SetupOptions) (*Generator, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	fail := func(err error) (*Generator, func() error, error) {
		closeAll()
		return nil, nil, err
	}

	tokenDir, tokenKey := credentials.SplitTokenPath(cfg.TokenFile)
	var tokens store.Store
	if cfg.TokenBucket != "" {
		gcs, err := store.NewGCS(ctx, cfg.TokenBucket, "")
		if err != nil {
			return fail(apperr.Config("opening token bucket", err))
		}
		tokens = gcs
		closers = append(closers, gcs.Close)
	} else {
		local, err := store.NewLocal(tokenDir)
		if err != nil {
			return fail(apperr.Config("opening token directory", err))
		}
		tokens = local
	}
	creds := credentials.New(cfg.ConfigFile, tokens, tokenKey)
	clientCreds, err := creds.LoadCredentials(ctx)
	if err != nil {
		return fail(err)
	}

	var responses *cache.Cache
	if !opts.NoCache {
		c, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("response cache disabled")
		} else {
			responses = c
		}
	}

	client := awqaf.New(awqaf.Options{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.HTTPMaxAttempts,
		Cache:       responses,
	})
	client.SetTokenSource(auth.NewManager(creds, client,
		auth.WithSkew(cfg.TokenSkew),
		auth.WithCredentials(clientCreds)))

	var (
		source  Source = client
		archive publish.Archive
	)
	if cfg.FirestoreProject != "" {
		fs, err := firestore.New(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
		if err != nil {
			return fail(apperr.Config("opening firestore", err))
		}
		closers = append(closers, fs.Close)
		archive = fs
		if opts.ArchiveFallback {
			source = FallbackSource{Primary: client, Archive: fs}
		}
	}

	publisher, closePublisher, err := publish.FromConfig(ctx, cfg, archive)
	if err != nil {
		return fail(apperr.Config("opening publish target", err))
	}
	closers = append(closers, closePublisher)

	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return fail(apperr.Config("calendar settings", err))
	}

	g, err := New(source, settings, cfg.OutputDir, publisher)
	if err != nil {
		return fail(apperr.Config("output directory", fmt.Errorf("%s: %w", cfg.OutputDir, err)))
	}
	return g, closeAll, nil
}
