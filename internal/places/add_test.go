package places

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/db"
	"github.com/dtnitsch/placeshelf/pkg/dedupe"
	"github.com/dtnitsch/placeshelf/pkg/resolver"
)

type fakeResolver struct {
	results map[string]*resolver.Result
}

func (f *fakeResolver) Resolve(_ context.Context, input string) (*resolver.Result, error) {
	res, ok := f.results[input]
	if !ok {
		return nil, fmt.Errorf("%w: %q", resolver.ErrNotAMapLink, input)
	}
	return res, nil
}

func placeResult(name, url string, lat, lng float64) *resolver.Result {
	return &resolver.Result{
		Place: &models.NormalizedPlace{
			Name:      name,
			Address:   "1 Example Street",
			Lat:       lat,
			Lng:       lng,
			SourceURL: url,
		},
		Stage:       resolver.StageDetails,
		ResolvedURL: url,
	}
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{results: map[string]*resolver.Result{
		"tower":        placeResult("Tower", "https://www.google.com/maps/place/Tower", 51.5081, -0.0759),
		"tower-again":  placeResult("Tower", "https://www.google.com/maps/place/Tower", 51.5081, -0.0759),
		"tower-nearby": placeResult("Tower Gate", "https://www.google.com/maps/place/Tower+Gate", 51.5083, -0.0758),
		"bridge":       placeResult("Bridge", "https://www.google.com/maps/place/Bridge", 51.5055, -0.0754),
	}}
}

func TestAddPlace(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		force     bool
		wantAdded bool
		wantKind  models.MatchKind
		wantCount int
	}{
		{name: "new place", inputs: []string{"tower"}, wantAdded: true, wantCount: 1},
		{name: "same url", inputs: []string{"tower", "tower-again"}, wantAdded: false, wantKind: models.MatchURL, wantCount: 1},
		{name: "within threshold", inputs: []string{"tower", "tower-nearby"}, wantAdded: false, wantKind: models.MatchCoordinates, wantCount: 1},
		{name: "forced duplicate", inputs: []string{"tower", "tower-again"}, force: true, wantAdded: true, wantKind: models.MatchURL, wantCount: 2},
		{name: "distinct place", inputs: []string{"tower", "bridge"}, wantAdded: true, wantCount: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := setupTestDB(t)
			r := newFakeResolver()
			detector := dedupe.New(0)

			var last *AddResult
			for _, input := range tt.inputs {
				res, err := AddPlace(context.Background(), database, r, detector, "london", input, tt.force)
				if err != nil {
					t.Fatalf("AddPlace(%q) error = %v", input, err)
				}
				last = res
			}

			if last.Added != tt.wantAdded {
				t.Errorf("Added = %v, want %v", last.Added, tt.wantAdded)
			}
			if last.Duplicate.MatchKind != tt.wantKind {
				t.Errorf("MatchKind = %q, want %q", last.Duplicate.MatchKind, tt.wantKind)
			}
			if tt.wantAdded && last.PlaceID == "" {
				t.Error("PlaceID is empty for an added place")
			}

			collectionID, err := database.GetCollectionID("london")
			if err != nil {
				t.Fatalf("GetCollectionID() error = %v", err)
			}
			stored, err := database.ListPlaces(collectionID)
			if err != nil {
				t.Fatalf("ListPlaces() error = %v", err)
			}
			if len(stored) != tt.wantCount {
				t.Errorf("stored %d places, want %d", len(stored), tt.wantCount)
			}

			logged, err := database.RecentResolutions(10)
			if err != nil {
				t.Fatalf("RecentResolutions() error = %v", err)
			}
			if len(logged) != len(tt.inputs) {
				t.Errorf("logged %d resolutions, want %d", len(logged), len(tt.inputs))
			}
		})
	}
}

func TestAddPlaceResolveFailure(t *testing.T) {
	database := setupTestDB(t)

	res, err := AddPlace(context.Background(), database, newFakeResolver(), dedupe.New(0), "london", "hello there", false)
	if !errors.Is(err, resolver.ErrNotAMapLink) {
		t.Fatalf("error = %v, want ErrNotAMapLink", err)
	}
	if res == nil || res.Added {
		t.Fatalf("result = %+v, want a not-added result", res)
	}
	if res.ErrorType != "not_a_map_link" {
		t.Errorf("ErrorType = %q, want not_a_map_link", res.ErrorType)
	}

	logged, err := database.RecentResolutions(10)
	if err != nil {
		t.Fatalf("RecentResolutions() error = %v", err)
	}
	if len(logged) != 1 || logged[0].Success {
		t.Errorf("logged = %+v, want one failed resolution", logged)
	}
}

func TestCheckCollection(t *testing.T) {
	database := setupTestDB(t)
	detector := dedupe.New(0)

	verdict, err := CheckCollection(database, detector, "missing", &models.Coordinates{Lat: 1, Lng: 1}, "")
	if err != nil {
		t.Fatalf("CheckCollection() error = %v", err)
	}
	if verdict.IsDuplicate {
		t.Error("missing collection reported a duplicate")
	}

	added, err := AddPlace(context.Background(), database, newFakeResolver(), detector, "london", "tower", false)
	if err != nil {
		t.Fatalf("AddPlace() error = %v", err)
	}

	tests := []struct {
		name   string
		coords *models.Coordinates
		url    string
		want   bool
	}{
		{name: "url match", url: "https://www.google.com/maps/place/Tower", want: true},
		{name: "coordinates nearby", coords: &models.Coordinates{Lat: 51.5082, Lng: -0.0759}, want: true},
		{name: "far away", coords: &models.Coordinates{Lat: 48.8584, Lng: 2.2945}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := CheckCollection(database, detector, "london", tt.coords, tt.url)
			if err != nil {
				t.Fatalf("CheckCollection() error = %v", err)
			}
			if verdict.IsDuplicate != tt.want {
				t.Errorf("IsDuplicate = %v, want %v", verdict.IsDuplicate, tt.want)
			}
			if tt.want && verdict.MatchedRecordID != added.PlaceID {
				t.Errorf("MatchedRecordID = %q, want %q", verdict.MatchedRecordID, added.PlaceID)
			}
		})
	}
}
