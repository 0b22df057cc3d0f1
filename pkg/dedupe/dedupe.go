// Package dedupe decides whether a candidate place is already in a collection.
//
// Every check is a full scan over the existing records. Collections are
// personal and hold at most a few hundred places, so there is no spatial
// index; this does not scale to large collections.
package dedupe

import (
	"strings"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/geo"
)

// DefaultThresholdMeters is the distance under which two places are the same.
const DefaultThresholdMeters = 50.0

// Record is the part of a stored place the detector looks at.
type Record struct {
	ID          string
	URL         string
	Coordinates *models.Coordinates
}

type Detector struct {
	threshold float64
}

// New returns a detector. A non-positive threshold selects the default.
func New(thresholdMeters float64) *Detector {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}
	return &Detector{threshold: thresholdMeters}
}

// Check compares a candidate against existing records. An exact URL match
// takes precedence; otherwise the first record within the threshold
// distance is the match. Either candidate value may be empty.
func (d *Detector) Check(coords *models.Coordinates, rawURL string, existing []Record) models.DuplicateVerdict {
	if u := strings.TrimSpace(rawURL); u != "" {
		for _, r := range existing {
			if r.URL == u {
				return models.DuplicateVerdict{IsDuplicate: true, MatchedRecordID: r.ID, MatchKind: models.MatchURL}
			}
		}
	}

	if coords == nil || !geo.Valid(coords.Lat, coords.Lng) {
		return models.DuplicateVerdict{}
	}
	for _, r := range existing {
		if r.Coordinates == nil {
			continue
		}
		dist := geo.Distance(*coords, *r.Coordinates)
		if dist <= d.threshold {
			return models.DuplicateVerdict{
				IsDuplicate:     true,
				MatchedRecordID: r.ID,
				MatchKind:       models.MatchCoordinates,
				DistanceMeters:  dist,
			}
		}
	}
	return models.DuplicateVerdict{}
}

// Check runs a default detector.
func Check(coords *models.Coordinates, rawURL string, existing []Record) models.DuplicateVerdict {
	return New(DefaultThresholdMeters).Check(coords, rawURL, existing)
}
