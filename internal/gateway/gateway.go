// package gateway is the single choke point for upstream API calls.
//
// It resolves which credential a call should use (session token or
// app-level client credentials), issues the HTTP request, and owns the
// retry, backoff, and transparent token refresh policy so callers never
// see a transient 429 or an expired token.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	// maxRetries bounds 429 retries; with the initial call that is
	// maxRetries+1 calls total.
	maxRetries = 3

	// backoffBase and backoffCap shape the fallback wait when the
	// upstream sends no Retry-After header.
	backoffBase = time.Second
	backoffCap  = 5 * time.Second
)

// TokenSource is the slice of the token store the gateway needs to
// resolve session credentials.
type TokenSource interface {
	IsFresh(sess *models.Session) bool
	Refresh(ctx context.Context, sess *models.Session) (string, error)
	Invalidate(ctx context.Context, sess *models.Session) error
}

// Response is a raw upstream response surfaced to callers.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// appToken holds the app-scoped client-credentials token.
//
// Single owner, refreshed lazily on expiry with the same margin and
// safety window contract as session bundles.
type appToken struct {
	mu   sync.Mutex
	conf *clientcredentials.Config
	tok  *oauth2.Token
}

func (a *appToken) get(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tok != nil && time.Now().Add(30*time.Second).Before(a.tok.Expiry) {
		return a.tok.AccessToken, nil
	}

	tok, err := a.conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials grant failed: %w", err)
	}

	if !tok.Expiry.IsZero() {
		tok.Expiry = tok.Expiry.Add(-time.Minute)
	}
	a.tok = tok

	return tok.AccessToken, nil
}

// Gateway issues authenticated calls against the upstream API base URL.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	app        *appToken
	limiter    *rate.Limiter
	logger     *log.Logger

	// sleep is swapped out in tests; retry waits run to completion
	// even when the caller has abandoned the response.
	sleep func(time.Duration)
}

// Opts configures a Gateway.
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	App        *clientcredentials.Config
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// New creates a Gateway with the provided options.
func New(opts Opts) *Gateway {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Gateway{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		app:        &appToken{conf: opts.App},
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		sleep:      time.Sleep,
	}
}

// Request issues an authenticated call to the upstream and returns the
// raw response.
//
// A nil session resolves to the app-level client-credentials token.
// 429 responses are retried with backoff up to the retry cap; a 401
// with a session present triggers exactly one token refresh and one
// retried call. Any other non-2xx response is surfaced verbatim as an
// [*UpstreamError]. Caller-supplied data is never mutated.
func (g *Gateway) Request(ctx context.Context, method, path string, sess *models.Session, body []byte) (*Response, error) {
	token, err := g.resolveToken(ctx, sess)
	if err != nil {
		return nil, err
	}

	refreshed := false
	attempt := 0

	for {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, &TransportError{Err: err}
			}
		}

		resp, err := g.do(ctx, method, path, token, body)
		if err != nil {
			return nil, &TransportError{Err: err}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= maxRetries {
				g.logger.Warn("retry budget exhausted", "status", resp.StatusCode, "attempts", attempt+1)
				return nil, &RateLimitedError{Attempts: attempt + 1, RetryAfter: retryAfter(resp)}
			}

			wait := retryAfter(resp)
			if wait <= 0 {
				wait = backoff(attempt)
			}

			g.logger.Warn("rate limited, retrying", "status", resp.StatusCode, "attempt", attempt+1, "wait", wait)
			g.sleep(wait)
			attempt++

		case resp.StatusCode == http.StatusUnauthorized && sess != nil:
			if refreshed {
				// A token the upstream just issued is still rejected:
				// refreshing again would loop, not recover.
				g.logger.Warn("refreshed token rejected by upstream", "session", sess.ID)
				return nil, shared.ErrAuthExpired
			}

			g.logger.Info("access token rejected, refreshing", "session", sess.ID)
			newToken, err := g.tokens.Refresh(ctx, sess)
			if err != nil {
				if invErr := g.tokens.Invalidate(ctx, sess); invErr != nil {
					g.logger.Error("failed to invalidate bundle", "session", sess.ID, "error", invErr)
				}
				return nil, fmt.Errorf("%w: %v", shared.ErrAuthExpired, err)
			}

			token = newToken
			refreshed = true

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		default:
			return nil, &UpstreamError{Status: resp.StatusCode, Body: resp.Body}
		}
	}
}

// resolveToken picks the credential for a call: the session's bundle
// (refreshing at most once if stale) or the cached app token.
//
// User-scoped calls never fall back to the app token; a failed refresh
// clears the bundle and surfaces [shared.ErrAuthExpired].
func (g *Gateway) resolveToken(ctx context.Context, sess *models.Session) (string, error) {
	if sess == nil || sess.Bundle == nil {
		return g.app.get(ctx)
	}

	if g.tokens.IsFresh(sess) {
		return sess.Bundle.AccessToken, nil
	}

	token, err := g.tokens.Refresh(ctx, sess)
	if err != nil {
		if invErr := g.tokens.Invalidate(ctx, sess); invErr != nil {
			g.logger.Error("failed to invalidate bundle", "session", sess.ID, "error", invErr)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrAuthExpired, err)
	}

	return token, nil
}

// do performs one HTTP round trip with the given bearer token.
func (g *Gateway) do(ctx context.Context, method, path, token string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}

// backoff computes the fallback wait for the given retry index:
// 1s, 2s, 4s, capped at 5s.
func backoff(attempt int) time.Duration {
	wait := backoffBase << attempt
	if wait > backoffCap {
		wait = backoffCap
	}
	return wait
}

// retryAfter reads the Retry-After header, 0 when absent or malformed.
func retryAfter(resp *Response) time.Duration {
	header := resp.Headers.Get("Retry-After")
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
