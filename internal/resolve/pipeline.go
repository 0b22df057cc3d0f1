package resolve

import (
	"fmt"
	"log/slog"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/browser"
	"github.com/dtnitsch/placeshelf/pkg/caching"
	"github.com/dtnitsch/placeshelf/pkg/fetcher"
	"github.com/dtnitsch/placeshelf/pkg/places"
	"github.com/dtnitsch/placeshelf/pkg/resolver"
	"github.com/dtnitsch/placeshelf/pkg/scraper"
)

// Pipeline owns the resolver and the browser process behind it.
type Pipeline struct {
	Resolver *resolver.Resolver
	browser  *browser.Manager
}

// NewPipeline wires the resolver from configuration. The browser is not
// started until a scrape needs it.
func NewPipeline(cfg *models.Config, logger *slog.Logger) (*Pipeline, error) {
	var cache *caching.Cache
	if cfg.Expander.CacheDir != "" && cfg.Expander.CacheTTL > 0 {
		c, err := caching.NewCache(cfg.Expander.CacheDir, cfg.Expander.CacheTTL)
		if err != nil {
			logger.Warn("Expansion cache disabled", "dir", cfg.Expander.CacheDir, "error", err)
		} else {
			cache = c
			if n, err := cache.Prune(); err == nil && n > 0 {
				logger.Debug("Pruned expired expansions", "count", n)
			}
		}
	}

	expander, err := fetcher.NewFetcher(fetcher.Options{
		Timeout: cfg.Expander.Timeout,
		Cache:   cache,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create expander: %w", err)
	}

	var placeService resolver.PlaceService
	if cfg.Places.APIKey != "" {
		opts := places.Options{
			BaseURL:           cfg.Places.BaseURL,
			Timeout:           cfg.Places.Timeout,
			RequestsPerSecond: cfg.Places.RequestsPerSecond,
			Burst:             cfg.Places.Burst,
			Logger:            logger,
		}
		if cfg.Places.DetectLanguage {
			opts.Languages = places.NewLinguaDetector()
		}
		placeService = places.NewClient(cfg.Places.APIKey, opts)
	} else {
		logger.Warn("No places API key configured; only scraping is available")
	}

	manager := browser.NewManager(browser.ChromeLauncher(cfg.Environment, cfg.Browser), browser.Options{
		IdleTimeout:   cfg.Browser.IdleTimeout,
		CheckInterval: cfg.Browser.CheckInterval,
		Logger:        logger,
	})
	pageScraper := scraper.New(manager, scraper.Options{
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Logger:            logger,
	})

	return &Pipeline{
		Resolver: resolver.New(expander, placeService, pageScraper, resolver.Options{Logger: logger}),
		browser:  manager,
	}, nil
}

// Close shuts the browser down.
func (p *Pipeline) Close() error {
	return p.browser.Close()
}
