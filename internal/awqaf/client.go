// Package awqaf is the client for the AWQAF mobile app API: client
// authorization and the prayer-times range endpoint.
package awqaf

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/cache"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://mobileappapi.awqaf.gov.ae/APIS/v2"

// TokenSource hands out a bearer token for API calls.
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (string, error)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	// BaseBackoff is the first retry delay; it doubles up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Cache is optional. A nil cache disables caching.
	Cache *cache.Cache
}

// Client talks to the AWQAF API.
type Client struct {
	http   *resty.Client
	tokens TokenSource
	cache  *cache.Cache
	opts   Options
}

// New creates a Client. The token source is set separately with
// SetTokenSource because the token manager itself authorizes through the
// client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 5 * time.Second
	}

	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "prayer-times-ics/1.0").
		SetHeader("Origin", "https://www.awqaf.gov.ae").
		SetHeader("Referer", "https://www.awqaf.gov.ae/").
		SetTimeout(opts.Timeout).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			log.Debug().Str("method", r.Method).Str("url", r.URL).Msg("awqaf request")
			return nil
		}).
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			log.Debug().
				Str("url", r.Request.URL).
				Int("status", r.StatusCode()).
				Dur("took", r.Time()).
				Int("bytes", len(r.Body())).
				Msg("awqaf response")
			return nil
		})

	return &Client{
		http:  c,
		cache: opts.Cache,
		opts:  opts,
	}
}

// SetTokenSource sets the source of bearer tokens for prayer-time requests.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// retry runs fn until it succeeds, fails irrecoverably, or MaxAttempts is
// reached, sleeping with exponential backoff between attempts.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = c.opts.MaxBackoff
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err != nil && !apperr.IsRecoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("retrying")
	})

	// A cancelled context ends the loop with the bare context error.
	if err != nil && ctx.Err() != nil && apperr.KindOf(err) == apperr.KindUnknown {
		return &apperr.Error{Kind: apperr.KindNetwork, Op: op, Err: err}
	}
	return err
}
