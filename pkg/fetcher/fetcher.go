// Package fetcher expands shortened map links by following their redirects.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/dtnitsch/placeshelf/pkg/caching"
	"github.com/dtnitsch/placeshelf/pkg/linkparse"
)

const (
	DefaultTimeout = 10 * time.Second
	maxRedirects   = 10
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrUnexpectedDestination means the redirect chain did not end on a Google maps page.
var ErrUnexpectedDestination = errors.New("short link did not resolve to a google domain")

type Options struct {
	Timeout time.Duration
	// Cache, when set, remembers expansions across runs.
	Cache  *caching.Cache
	Logger *slog.Logger
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

type Fetcher struct {
	client *http.Client
	cache  *caching.Cache
	logger *slog.Logger
}

func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:       opts.Timeout,
			Jar:           jar,
			Transport:     opts.Transport,
			CheckRedirect: stopAtConsent,
		},
		cache:  opts.Cache,
		logger: opts.Logger,
	}, nil
}

// stopAtConsent follows redirects but never into the consent interstitial:
// its continue target is the real destination.
func stopAtConsent(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if linkparse.IsConsentURL(req.URL.String()) {
		return http.ErrUseLastResponse
	}
	return nil
}

// Expand follows shortURL's redirects and returns the destination. A consent
// interstitial is replaced by its continue target. HEAD is tried first; GET
// is used when the server refuses HEAD.
func (f *Fetcher) Expand(ctx context.Context, shortURL string) (string, error) {
	if f.cache != nil {
		if dest, ok := f.cache.Get(shortURL); ok {
			f.logger.Debug("Expansion cache hit", "url", shortURL, "destination", dest)
			return dest, nil
		}
	}

	dest, err := f.follow(ctx, http.MethodHead, shortURL)
	if errors.Is(err, errMethodRefused) {
		dest, err = f.follow(ctx, http.MethodGet, shortURL)
	}
	if err != nil {
		return "", err
	}

	if linkparse.IsConsentURL(dest) {
		target, ok := linkparse.ConsentContinue(dest)
		if !ok {
			return "", fmt.Errorf("%w: consent page without continue target: %s", ErrUnexpectedDestination, dest)
		}
		f.logger.Debug("Unwrapped consent interstitial", "interstitial", dest, "continue", target)
		dest = target
	}

	u, err := url.Parse(dest)
	if err != nil || !linkparse.IsGoogleHost(u.Host) || linkparse.IsShortLink(dest) {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedDestination, dest)
	}

	if f.cache != nil {
		if err := f.cache.Set(shortURL, dest); err != nil {
			f.logger.Warn("Failed to cache expansion", "url", shortURL, "error", err)
		}
	}
	return dest, nil
}

var errMethodRefused = errors.New("method refused")

func (f *Fetcher) follow(ctx context.Context, method, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		return "", errMethodRefused
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// stopped at the consent interstitial
		loc, err := resp.Location()
		if err != nil {
			return "", fmt.Errorf("redirect without location: %w", err)
		}
		return loc.String(), nil
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("failed to expand link, status code: %d", resp.StatusCode)
	}
	return resp.Request.URL.String(), nil
}
