// Package scraper loads a place page in the shared headless browser and reads
// the details a person would see on it.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/browser"
	"github.com/dtnitsch/placeshelf/pkg/linkparse"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultAcceptLanguage    = "en-US,en;q=0.9"

	contentWait    = 5 * time.Second
	consentPolls   = 10
	consentPollGap = 300 * time.Millisecond
)

// ErrNotGooglePage is returned when navigation ends somewhere other than a Google host.
var ErrNotGooglePage = errors.New("page did not land on a google domain")

// PageOpener hands out browser pages. *browser.Manager implements it.
type PageOpener interface {
	NewPage(ctx context.Context) (context.Context, func(), error)
}

var _ PageOpener = (*browser.Manager)(nil)

type Options struct {
	UserAgent         string
	AcceptLanguage    string
	NavigationTimeout time.Duration
	Logger            *slog.Logger
}

type Scraper struct {
	pages          PageOpener
	userAgent      string
	acceptLanguage string
	navTimeout     time.Duration
	logger         *slog.Logger
}

func New(pages PageOpener, opts Options) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = browser.DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scraper{
		pages:          pages,
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
		navTimeout:     opts.NavigationTimeout,
		logger:         opts.Logger,
	}
}

// Scrape renders rawURL and extracts the place fields from the final page.
// It fails only when navigation fails or the page leaves Google; a consent
// wall that cannot be passed is logged and extraction continues on whatever
// rendered.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*models.ScrapedFields, error) {
	page, release, err := s.pages.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer release()

	// The first run attaches the tab; it must not be bound to the navigation deadline.
	if err := chromedp.Run(page); err != nil {
		return nil, fmt.Errorf("failed to attach page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(page, s.navTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, s.prepare(rawURL)...); err != nil {
		s.logger.Warn("Failed to prepare page", "url", rawURL, "error", err)
	}

	var location string
	if err := chromedp.Run(navCtx, chromedp.Navigate(rawURL), chromedp.Location(&location)); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}

	if linkparse.IsConsentURL(location) {
		location = s.passConsent(navCtx, location)
	}

	if !onGoogle(location) {
		return nil, fmt.Errorf("%w: %s", ErrNotGooglePage, location)
	}

	waitCtx, cancelWait := context.WithTimeout(navCtx, contentWait)
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible("h1", chromedp.ByQuery)); err != nil {
		s.logger.Debug("Place heading not visible", "url", location, "error", err)
	}
	cancelWait()

	var html string
	if err := chromedp.Run(navCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}

	fields, err := ExtractFields(html, location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered page: %w", err)
	}
	s.logger.Debug("Scraped place page", "url", location, "name", fields.Name, "address", fields.Address)
	return fields, nil
}

func (s *Scraper) prepare(rawURL string) []chromedp.Action {
	return []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(s.userAgent).
				WithAcceptLanguage(s.acceptLanguage).
				Do(ctx)
		}),
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(ConsentCookies(rawURL)).Do(ctx)
		}),
	}
}

// passConsent tries the accept control first and then the interstitial's
// continue target. It returns the page location once done.
func (s *Scraper) passConsent(ctx context.Context, location string) string {
	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(consentScript, &clicked)); err != nil {
		s.logger.Debug("Consent click script failed", "error", err)
	}
	if clicked {
		for i := 0; i < consentPolls; i++ {
			var current string
			if err := chromedp.Run(ctx, chromedp.Sleep(consentPollGap), chromedp.Location(&current)); err != nil {
				break
			}
			if !linkparse.IsConsentURL(current) {
				s.logger.Debug("Consent accepted", "url", current)
				return current
			}
		}
	}

	if target, ok := linkparse.ConsentContinue(location); ok {
		var current string
		err := chromedp.Run(ctx, chromedp.Navigate(target), chromedp.Location(&current))
		if err == nil && !linkparse.IsConsentURL(current) {
			s.logger.Debug("Consent bypassed via continue target", "url", current)
			return current
		}
		if err != nil {
			s.logger.Debug("Continue navigation failed", "target", target, "error", err)
		}
	}

	s.logger.Warn("Could not get past consent page, scraping as rendered", "url", location)
	return location
}

func onGoogle(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return linkparse.IsGoogleHost(u.Host)
}

// Values recognised as an already-answered consent prompt.
const (
	consentCookieValue = "YES+cb.20210328-17-p0.en+FX+410"
	socsCookieValue    = "CAESHAgBEhJnd3NfMjAyMzA4MTAtMF9SQzIaAmVuIAEaBgiAo_CmBg"
)

// ConsentCookies returns the CONSENT and SOCS cookies for google.com and, if
// different, for the Google domain rawURL points at.
func ConsentCookies(rawURL string) []*network.CookieParam {
	domains := []string{".google.com"}
	if d := googleDomain(rawURL); d != "" && d != ".google.com" {
		domains = append(domains, d)
	}

	var cookies []*network.CookieParam
	for _, d := range domains {
		cookies = append(cookies,
			&network.CookieParam{Name: "CONSENT", Value: consentCookieValue, Domain: d, Path: "/", Secure: true},
			&network.CookieParam{Name: "SOCS", Value: socsCookieValue, Domain: d, Path: "/", Secure: true},
		)
	}
	return cookies
}

func googleDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if !linkparse.IsGoogleHost(host) {
		return ""
	}
	if host == "google.com" || strings.HasSuffix(host, ".google.com") {
		return ".google.com"
	}
	i := strings.Index(host, "google.")
	if i < 0 {
		return ""
	}
	return "." + host[i:]
}

const consentScript = `(function () {
  const selectors = [
    'button[aria-label="Accept all"]',
    'button[aria-label="I agree"]',
    'button[aria-label="Alles akzeptieren"]',
    'button[aria-label="Tout accepter"]',
    'button[aria-label="Aceptar todo"]',
    'button.VfPpkd-LgbsSe-OWXEXe-k8QpJ'
  ];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (btn) {
      btn.click();
      return true;
    }
  }
  const labels = /^(accept all|i agree|alle akzeptieren|tout accepter|aceptar todo|accetta tutto)$/i;
  for (const btn of document.querySelectorAll('button, input[type="submit"]')) {
    const label = (btn.getAttribute('aria-label') || btn.value || btn.textContent || '').trim();
    if (labels.test(label)) {
      btn.click();
      return true;
    }
  }
  return false;
})();`
