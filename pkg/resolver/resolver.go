// Package resolver turns shared map text into a normalized place by running
// an ordered fallback chain: detail lookup, text search, then page scraping.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/linkparse"
)

var (
	ErrNotAMapLink       = errors.New("not a map link")
	ErrExpansionFailed   = errors.New("short link expansion failed")
	ErrUnresolvablePlace = errors.New("place could not be resolved")
)

// Expander resolves a shortened link to its destination.
type Expander interface {
	Expand(ctx context.Context, shortURL string) (string, error)
}

// PlaceService is the structured place API. Both calls return a nil place
// when there is no usable answer.
type PlaceService interface {
	GetDetails(ctx context.Context, externalID string) (*models.NormalizedPlace, error)
	Search(ctx context.Context, query string, bias *models.Coordinates) (*models.NormalizedPlace, error)
}

// Scraper reads place fields from the rendered page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.ScrapedFields, error)
}

// Result is a resolved place together with how it was found.
type Result struct {
	Place       *models.NormalizedPlace
	Stage       Stage
	ResolvedURL string
	Hints       models.ExtractedHints
	Trail       []StageResult
}

type Options struct {
	Logger *slog.Logger
}

type Resolver struct {
	expander Expander
	places   PlaceService
	scraper  Scraper
	logger   *slog.Logger
	stages   []namedStage
}

type namedStage struct {
	stage Stage
	run   stageFunc
}

// New builds a resolver. places and scraper may be nil; their stages are
// then skipped.
func New(expander Expander, places PlaceService, scraper Scraper, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Resolver{
		expander: expander,
		places:   places,
		scraper:  scraper,
		logger:   opts.Logger,
	}
	r.stages = []namedStage{
		{StageDetails, r.lookupDetails},
		{StageSearch, r.searchByHints},
		{StageScrape, r.scrapePage},
	}
	return r
}

// Resolve classifies input, expands it if shortened, extracts hints and runs
// the stage chain until one succeeds. Stage failures are recovered; only
// exhaustion of every stage is reported, as ErrUnresolvablePlace.
func (r *Resolver) Resolve(ctx context.Context, input string) (*Result, error) {
	start := time.Now()

	link := linkparse.Classify(input)
	if !link.IsValid {
		return nil, ErrNotAMapLink
	}

	resolved := link.CanonicalURL
	if link.IsShortened {
		if r.expander == nil {
			return nil, fmt.Errorf("%w: no expander configured", ErrExpansionFailed)
		}
		dest, err := r.expander.Expand(ctx, resolved)
		if err != nil {
			r.logger.Warn("Failed to expand short link", "url", resolved, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrExpansionFailed, err)
		}
		r.logger.Debug("Expanded short link", "url", resolved, "destination", dest)
		resolved = dest
	}
	if linkparse.IsConsentURL(resolved) {
		if target, ok := linkparse.ConsentContinue(resolved); ok {
			resolved = target
		}
	}

	hints := linkparse.ExtractHints(resolved)
	if hints.Coordinates != nil && !hints.CoordinateRule.Authoritative() {
		// Links from current clients carry the place marker or place path;
		// the weaker rules firing usually means the link format has shifted.
		r.logger.Warn("Coordinates taken from fallback rule", "rule", hints.CoordinateRule, "url", resolved)
	}
	r.logger.Debug("Extracted hints", "url", resolved, "hints", hints)

	result := &Result{ResolvedURL: resolved, Hints: hints}
	a := &attempt{resolvedURL: resolved, hints: hints}

	for _, s := range r.stages {
		sr := s.run(ctx, a)
		result.Trail = append(result.Trail, sr)

		switch sr.Outcome {
		case Success:
			if sr.Place.SourceURL == "" {
				sr.Place.SourceURL = resolved
			}
			result.Place = sr.Place
			result.Stage = sr.Stage
			r.logger.Info("Resolved place", "stage", sr.Stage, "name", sr.Place.Name, "elapsed", time.Since(start))
			return result, nil
		case HardFail:
			return result, fmt.Errorf("resolution aborted at %s: %w", sr.Stage, sr.Err)
		default:
			if errors.Is(sr.Err, ErrStageSkipped) {
				r.logger.Debug("Stage skipped", "stage", sr.Stage, "reason", sr.Err)
			} else {
				r.logger.Warn("Stage failed, falling through", "stage", sr.Stage, "error", sr.Err)
			}
		}
	}

	return result, ErrUnresolvablePlace
}
