package places

import (
	"context"
	"fmt"

	"github.com/dtnitsch/placeshelf/internal/resolve"
	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/db"
	"github.com/dtnitsch/placeshelf/pkg/dedupe"
	"github.com/dtnitsch/placeshelf/pkg/resolver"
)

// Resolver turns shared text into a place. *resolver.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*resolver.Result, error)
}

// AddResult reports what the add command did.
type AddResult struct {
	resolve.Output `yaml:",inline"`
	Collection     string                  `json:"collection" yaml:"collection"`
	PlaceID        string                  `json:"place_id,omitempty" yaml:"place_id,omitempty"`
	Added          bool                    `json:"added" yaml:"added"`
	Duplicate      models.DuplicateVerdict `json:"duplicate" yaml:"duplicate"`
}

// AddPlace resolves input and stores it in collection unless it duplicates
// a place already there. force stores it regardless. The returned error is
// the resolution error, if any; storage failures are returned wrapped.
func AddPlace(ctx context.Context, database *db.DB, r Resolver, detector *dedupe.Detector, collection, input string, force bool) (*AddResult, error) {
	collectionID, err := database.EnsureCollection(collection)
	if err != nil {
		return nil, err
	}

	res, resolveErr := r.Resolve(ctx, input)
	result := &AddResult{Output: resolve.NewOutput(input, res, resolveErr), Collection: collection}
	if resolveErr != nil {
		if _, err := database.RecordResolution(resolve.Record(input, res, resolveErr, "")); err != nil {
			return result, fmt.Errorf("failed to log resolution: %w", err)
		}
		return result, resolveErr
	}

	existing, err := database.ListPlaces(collectionID)
	if err != nil {
		return result, err
	}
	coords := res.Place.Coordinates()
	result.Duplicate = detector.Check(&coords, res.Place.SourceURL, ToRecords(existing))

	if !result.Duplicate.IsDuplicate || force {
		placeID, err := database.InsertPlace(collectionID, res.Place)
		if err != nil {
			return result, err
		}
		result.PlaceID = placeID
		result.Added = true
	}

	if _, err := database.RecordResolution(resolve.Record(input, res, nil, result.PlaceID)); err != nil {
		return result, fmt.Errorf("failed to log resolution: %w", err)
	}
	return result, nil
}

// ToRecords projects stored places onto what the duplicate detector compares.
func ToRecords(places []db.PlaceRecord) []dedupe.Record {
	records := make([]dedupe.Record, 0, len(places))
	for _, p := range places {
		coords := p.Coordinates()
		records = append(records, dedupe.Record{
			ID:          p.PlaceID,
			URL:         p.Place.SourceURL,
			Coordinates: &coords,
		})
	}
	return records
}
