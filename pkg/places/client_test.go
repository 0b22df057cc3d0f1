package places

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/dtnitsch/placeshelf/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", Options{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		Burst:             10,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

const bigBenJSON = `{
  "id": "ChIJ2dGMjMMEdkgRqVqkuXQkj7c",
  "displayName": {"text": "Big Ben", "languageCode": "en"},
  "formattedAddress": "London SW1A 0AA, UK",
  "location": {"latitude": 51.5007292, "longitude": -0.1246254},
  "rating": 4.6,
  "userRatingCount": 123456,
  "websiteUri": "https://www.parliament.uk/bigben",
  "nationalPhoneNumber": "020 7219 3000",
  "types": ["tourist_attraction", "point_of_interest"],
  "regularOpeningHours": {"weekdayDescriptions": ["Monday: Open 24 hours"]}
}`

func TestGetDetails(t *testing.T) {
	var gotPath, gotKey, gotMask string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotMask = r.Header.Get("X-Goog-FieldMask")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bigBenJSON))
	})

	place, err := client.GetDetails(context.Background(), "ChIJ2dGMjMMEdkgRqVqkuXQkj7c")
	if err != nil {
		t.Fatalf("GetDetails() error = %v", err)
	}
	if place == nil {
		t.Fatal("GetDetails() returned nil place")
	}

	if gotPath != "/v1/places/ChIJ2dGMjMMEdkgRqVqkuXQkj7c" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotMask != detailsFieldMask {
		t.Errorf("field mask = %q", gotMask)
	}

	want := &models.NormalizedPlace{
		Name:         "Big Ben",
		Address:      "London SW1A 0AA, UK",
		Lat:          51.5007292,
		Lng:          -0.1246254,
		ExternalID:   "ChIJ2dGMjMMEdkgRqVqkuXQkj7c",
		Types:        []string{"tourist_attraction", "point_of_interest"},
		Website:      "https://www.parliament.uk/bigben",
		Phone:        "020 7219 3000",
		Rating:       ptr(4.6),
		RatingCount:  ptr(123456),
		OpeningHours: []string{"Monday: Open 24 hours"},
	}
	if !reflect.DeepEqual(place, want) {
		t.Errorf("GetDetails() = %+v, want %+v", place, want)
	}
}

func TestGetDetails_Unusable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":{"code":404}}`},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403}}`},
		{"no location", http.StatusOK, `{"id":"ChIJabc","displayName":{"text":"Nowhere"}}`},
		{"location out of range", http.StatusOK, `{"id":"ChIJabc","displayName":{"text":"X"},"location":{"latitude":123.0,"longitude":-400.0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			place, err := client.GetDetails(context.Background(), "ChIJabcdefghij")
			if err != nil {
				t.Fatalf("GetDetails() error = %v", err)
			}
			if place != nil {
				t.Errorf("GetDetails() = %+v, want nil", place)
			}
		})
	}
}

func TestGetDetails_RejectsCoordinateIdentifier(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.GetDetails(context.Background(), "0x47e66e2964e34e2d:0x8ddca9ee380ef7e0")
	if !errors.Is(err, ErrCoordinateIdentifier) {
		t.Fatalf("GetDetails() error = %v, want ErrCoordinateIdentifier", err)
	}
	if called {
		t.Error("detail endpoint was called for a coordinate identifier")
	}
}

func TestSearch_SendsBiasAndMask(t *testing.T) {
	var body searchRequest
	var gotMethod, gotPath, gotMask string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotMask = r.Header.Get("X-Goog-FieldMask")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"places":[` + bigBenJSON + `]}`))
	})

	bias := &models.Coordinates{Lat: 51.5, Lng: -0.12}
	place, err := client.Search(context.Background(), "Big Ben", bias)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if place == nil || place.Name != "Big Ben" {
		t.Fatalf("Search() = %+v", place)
	}

	if gotMethod != http.MethodPost || gotPath != "/v1/places:searchText" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotMask != searchFieldMask {
		t.Errorf("field mask = %q", gotMask)
	}
	if body.TextQuery != "Big Ben" || body.MaxResultCount != 1 {
		t.Errorf("body = %+v", body)
	}
	if body.LocationBias == nil {
		t.Fatal("expected location bias")
	}
	if c := body.LocationBias.Circle; c.Radius != SearchRadiusMeters || c.Center.Latitude != 51.5 || c.Center.Longitude != -0.12 {
		t.Errorf("bias circle = %+v", c)
	}
}

func TestSearch_NoBias(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"places":[` + bigBenJSON + `]}`))
	})

	if _, err := client.Search(context.Background(), "51.5007,-0.1246", nil); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, ok := raw["locationBias"]; ok {
		t.Errorf("unexpected locationBias in %v", raw)
	}
}

func TestSearch_NoResults(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty object", http.StatusOK, `{}`},
		{"empty list", http.StatusOK, `{"places":[]}`},
		{"server error", http.StatusInternalServerError, `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			place, err := client.Search(context.Background(), "Nowhere In Particular", nil)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if place != nil {
				t.Errorf("Search() = %+v, want nil", place)
			}
		})
	}
}

func TestSearch_MissingNameUsesPlaceholder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"places":[{"id":"ChIJx","location":{"latitude":1.5,"longitude":2.5}}]}`))
	})

	place, err := client.Search(context.Background(), "somewhere", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if place.Name != models.UnknownPlaceName {
		t.Errorf("Name = %q, want %q", place.Name, models.UnknownPlaceName)
	}
	if place.Address != models.UnknownAddress {
		t.Errorf("Address = %q, want %q", place.Address, models.UnknownAddress)
	}
	if place.Rating != nil || place.Website != "" || place.Types != nil {
		t.Errorf("optional fields should stay empty: %+v", place)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"places":[` + bigBenJSON + `]}`))
	})

	first, err := client.Search(context.Background(), "Big Ben", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, err := client.Search(context.Background(), "Big Ben", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

type stubLanguages string

func (s stubLanguages) Detect(string) (string, bool) { return string(s), s != "" }

func TestSearch_LanguageCode(t *testing.T) {
	var body searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("k", Options{BaseURL: server.URL, Languages: stubLanguages("fr")})
	if _, err := client.Search(context.Background(), "musée du louvre à paris", nil); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if body.LanguageCode != "fr" {
		t.Errorf("languageCode = %q, want fr", body.LanguageCode)
	}
}

func ptr[T any](v T) *T { return &v }
