package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/linkparse"
)

// Stage names one step of the fallback chain.
type Stage string

const (
	StageDetails Stage = "details"
	StageSearch  Stage = "search"
	StageScrape  Stage = "scrape"
)

// Outcome is how a stage ended.
type Outcome int

const (
	// SoftFail passes control to the next stage.
	SoftFail Outcome = iota
	Success
	// HardFail stops the chain; only caller cancellation produces it.
	HardFail
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFail:
		return "soft_fail"
	case HardFail:
		return "hard_fail"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ErrStageSkipped marks a stage that had nothing to work with.
var ErrStageSkipped = errors.New("stage not applicable")

// StageResult is the auditable record of one stage.
type StageResult struct {
	Stage   Stage
	Outcome Outcome
	Place   *models.NormalizedPlace
	Err     error
}

// attempt is the state shared by the stages of one resolution.
type attempt struct {
	resolvedURL string
	hints       models.ExtractedHints
}

type stageFunc func(ctx context.Context, a *attempt) StageResult

func success(stage Stage, place *models.NormalizedPlace) StageResult {
	return StageResult{Stage: stage, Outcome: Success, Place: place}
}

// failed classifies a stage error: cancellation of the caller is terminal,
// everything else falls through.
func failed(ctx context.Context, stage Stage, err error) StageResult {
	if ctx.Err() != nil {
		return StageResult{Stage: stage, Outcome: HardFail, Err: ctx.Err()}
	}
	return StageResult{Stage: stage, Outcome: SoftFail, Err: err}
}

func skipped(stage Stage, reason string) StageResult {
	return StageResult{Stage: stage, Outcome: SoftFail, Err: fmt.Errorf("%w: %s", ErrStageSkipped, reason)}
}

func (r *Resolver) lookupDetails(ctx context.Context, a *attempt) StageResult {
	id, ok := a.hints.OpaqueID()
	if !ok {
		return skipped(StageDetails, "no opaque identifier")
	}
	if r.places == nil {
		return skipped(StageDetails, "no place service configured")
	}

	place, err := r.places.GetDetails(ctx, id)
	if err != nil {
		return failed(ctx, StageDetails, err)
	}
	if place == nil {
		return failed(ctx, StageDetails, errors.New("no details for identifier"))
	}
	return success(StageDetails, place)
}

func (r *Resolver) searchByHints(ctx context.Context, a *attempt) StageResult {
	query := searchQuery(a.hints)
	if query == "" {
		return skipped(StageSearch, "no name or coordinates to search for")
	}
	if r.places == nil {
		return skipped(StageSearch, "no place service configured")
	}

	place, err := r.places.Search(ctx, query, a.hints.Coordinates)
	if err != nil {
		return failed(ctx, StageSearch, err)
	}
	if place == nil {
		return failed(ctx, StageSearch, fmt.Errorf("no results for %q", query))
	}
	return success(StageSearch, place)
}

// searchQuery prefers the name fragment and falls back to "lat,lng".
func searchQuery(h models.ExtractedHints) string {
	if h.NameFragment != "" {
		return h.NameFragment
	}
	if h.Coordinates != nil {
		return strconv.FormatFloat(h.Coordinates.Lat, 'f', -1, 64) + "," +
			strconv.FormatFloat(h.Coordinates.Lng, 'f', -1, 64)
	}
	return ""
}

func (r *Resolver) scrapePage(ctx context.Context, a *attempt) StageResult {
	if r.scraper == nil {
		return skipped(StageScrape, "no scraper configured")
	}

	fields, err := r.scraper.Scrape(ctx, a.resolvedURL)
	if err != nil {
		return failed(ctx, StageScrape, err)
	}
	if !fields.HasIdentity() {
		return failed(ctx, StageScrape, errors.New("page had neither name nor address"))
	}

	coords := fields.Coordinates
	if coords == nil {
		coords = a.hints.Coordinates
	}
	if coords == nil {
		return failed(ctx, StageScrape, errors.New("no coordinates for scraped place"))
	}
	return success(StageScrape, placeFromScrape(fields, *coords, a))
}

// placeFromScrape fills gaps in the scraped fields from URL-derived hints.
func placeFromScrape(f *models.ScrapedFields, coords models.Coordinates, a *attempt) *models.NormalizedPlace {
	place := &models.NormalizedPlace{
		Name:         firstNonEmpty(f.Name, a.hints.NameFragment, linkparse.NameFragment(f.ResolvedURL), models.UnknownPlaceName),
		Address:      firstNonEmpty(f.Address, linkparse.AddressFragment(a.resolvedURL), linkparse.AddressFragment(f.ResolvedURL), models.UnknownAddress),
		Lat:          coords.Lat,
		Lng:          coords.Lng,
		Website:      f.Website,
		Phone:        f.Phone,
		Rating:       f.Rating,
		RatingCount:  f.RatingCount,
		OpeningHours: f.OpeningHours,
	}
	if id, ok := a.hints.OpaqueID(); ok {
		place.ExternalID = id
	}
	if f.Category != "" {
		place.Types = []string{f.Category}
	}
	return place
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
