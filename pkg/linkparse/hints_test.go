package linkparse

import (
	"testing"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/geo"
)

func TestExtractHints_PlaceMarkerWins(t *testing.T) {
	u := "https://www.google.com/maps/place/Big+Ben/@51.5007,-0.1246,17z/data=!3m1!4b1!4m6!3m5!1s0x487:0x4e2!8m2!3d51.5!4d-0.12!16s%2Fm%2F0d2x"

	h := ExtractHints(u)
	if h.Coordinates == nil {
		t.Fatal("expected coordinates")
	}
	if h.Coordinates.Lat != 51.5 || h.Coordinates.Lng != -0.12 {
		t.Errorf("Coordinates = %+v, want (51.5, -0.12)", *h.Coordinates)
	}
	if h.CoordinateRule != models.RulePlaceMarker {
		t.Errorf("CoordinateRule = %q, want %q", h.CoordinateRule, models.RulePlaceMarker)
	}
	if h.PlaceID == nil || h.PlaceID.Value != "0x487:0x4e2" || h.PlaceID.Kind != models.IdentifierCoordinate {
		t.Errorf("PlaceID = %+v, want coordinate identifier 0x487:0x4e2", h.PlaceID)
	}
	if h.NameFragment != "Big Ben" {
		t.Errorf("NameFragment = %q, want %q", h.NameFragment, "Big Ben")
	}
}

func TestExtractHints_Identifiers(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantID   string
		wantKind models.IdentifierKind
	}{
		{
			name:     "opaque id in data blob",
			url:      "https://www.google.com/maps/place/X/data=!4m2!3m1!1sChIJLU7jZClu5kcR4PcOOO6p3I0",
			wantID:   "ChIJLU7jZClu5kcR4PcOOO6p3I0",
			wantKind: models.IdentifierOpaque,
		},
		{
			name:     "opaque id in q parameter",
			url:      "https://www.google.com/maps/search/?api=1&query=Louvre&query_place_id=ChIJD3uTd9hx5kcR1IQvGfr8dbk",
			wantID:   "ChIJD3uTd9hx5kcR1IQvGfr8dbk",
			wantKind: models.IdentifierOpaque,
		},
		{
			name:     "opaque wins over hex",
			url:      "https://www.google.com/maps/place/X/data=!1s0x47e6:0x8ddc!1sChIJLU7jZClu5kcR4PcOOO6p3I0",
			wantID:   "ChIJLU7jZClu5kcR4PcOOO6p3I0",
			wantKind: models.IdentifierOpaque,
		},
		{
			name:     "ftid parameter is a coordinate identifier",
			url:      "https://maps.google.com/?ftid=0x47e66e2964e34e2d:0x8ddca9ee380ef7e0",
			wantID:   "0x47e66e2964e34e2d:0x8ddca9ee380ef7e0",
			wantKind: models.IdentifierCoordinate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ExtractHints(tt.url)
			if h.PlaceID == nil {
				t.Fatal("expected a place identifier")
			}
			if h.PlaceID.Value != tt.wantID || h.PlaceID.Kind != tt.wantKind {
				t.Errorf("PlaceID = %+v, want {%s %s}", *h.PlaceID, tt.wantID, tt.wantKind)
			}
		})
	}
}

func TestExtractHints_TieBreakChain(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantLat  float64
		wantLng  float64
		wantRule models.CoordinateRule
	}{
		{
			name:     "place path pair",
			url:      "https://www.google.com/maps/place/48.8584,2.2945/@48.85,2.29,15z",
			wantLat:  48.8584,
			wantLng:  2.2945,
			wantRule: models.RulePlacePath,
		},
		{
			name:     "search path with encoded comma",
			url:      "https://www.google.com/maps/search/48.8584,+2.2945",
			wantLat:  48.8584,
			wantLng:  2.2945,
			wantRule: models.RulePlacePath,
		},
		{
			name:     "embedded pair away from viewport",
			url:      "https://www.google.com/maps/@48.8500,2.2900,15z/data=!3d48.8500!4d2.2900!3d48.8606!4d2.3376",
			wantLat:  48.8606,
			wantLng:  2.3376,
			wantRule: models.RuleAwayFromCamera,
		},
		{
			name:     "last embedded pair without viewport",
			url:      "https://www.google.com/maps/data=!3d10.0!4d20.0!3d11.5!4d21.5",
			wantLat:  11.5,
			wantLng:  21.5,
			wantRule: models.RuleLastEmbedded,
		},
		{
			name:     "embedded pairs all at camera fall to last embedded",
			url:      "https://www.google.com/maps/@40.0,-70.0,12z/data=!3d40.0!4d-70.0",
			wantLat:  40.0,
			wantLng:  -70.0,
			wantRule: models.RuleLastEmbedded,
		},
		{
			name:     "query parameter",
			url:      "https://maps.google.com/?q=52.5200,13.4050",
			wantLat:  52.52,
			wantLng:  13.405,
			wantRule: models.RuleQueryParameter,
		},
		{
			name:     "query parameter beats viewport",
			url:      "https://www.google.com/maps/@1.0,1.0,10z?ll=35.6586,139.7454",
			wantLat:  35.6586,
			wantLng:  139.7454,
			wantRule: models.RuleQueryParameter,
		},
		{
			name:     "viewport center only",
			url:      "https://www.google.com/maps/@-33.8568,151.2153,14z",
			wantLat:  -33.8568,
			wantLng:  151.2153,
			wantRule: models.RuleViewportCenter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ExtractHints(tt.url)
			if h.Coordinates == nil {
				t.Fatalf("expected coordinates for %s", tt.url)
			}
			if h.Coordinates.Lat != tt.wantLat || h.Coordinates.Lng != tt.wantLng {
				t.Errorf("Coordinates = %+v, want (%v, %v)", *h.Coordinates, tt.wantLat, tt.wantLng)
			}
			if h.CoordinateRule != tt.wantRule {
				t.Errorf("CoordinateRule = %q, want %q", h.CoordinateRule, tt.wantRule)
			}
		})
	}
}

func TestExtractHints_DiscardsOutOfRange(t *testing.T) {
	tests := []string{
		"https://www.google.com/maps/@95.0,10.0,10z",
		"https://www.google.com/maps/data=!3d12.0!4d190.5",
		"https://maps.google.com/?q=-91.2,0",
		"https://www.google.com/maps/@1234.5,10.0,10z",
	}
	for _, u := range tests {
		h := ExtractHints(u)
		if h.Coordinates != nil {
			t.Errorf("ExtractHints(%q) returned %+v, want none", u, *h.Coordinates)
		}
	}
}

func TestExtractHints_InvalidPairSkippedNotClamped(t *testing.T) {
	// The first embedded pair is out of range; the chain must pick the valid one.
	h := ExtractHints("https://www.google.com/maps/data=!3d99.0!4d10.0!3d45.0!4d10.0")
	if h.Coordinates == nil {
		t.Fatal("expected coordinates")
	}
	if h.Coordinates.Lat != 45.0 {
		t.Errorf("Lat = %v, want 45", h.Coordinates.Lat)
	}
}

func TestExtractHints_AllCoordinatesInRange(t *testing.T) {
	urls := []string{
		"https://www.google.com/maps/place/A/@89.9,179.9,3z/data=!3d-89.9!4d-179.9",
		"https://www.google.com/maps/place/B/@0,0,3z",
		"https://www.google.com/maps/search/-45.5,+170.2",
		"https://maps.google.com/?center=12.3,-45.6",
	}
	for _, u := range urls {
		h := ExtractHints(u)
		if h.Coordinates == nil {
			continue
		}
		if !geo.Valid(h.Coordinates.Lat, h.Coordinates.Lng) {
			t.Errorf("ExtractHints(%q) produced out-of-range %+v", u, *h.Coordinates)
		}
	}
}

func TestExtractHints_NameOnly(t *testing.T) {
	h := ExtractHints("https://www.google.com/maps/place/Caf%C3%A9+de+Flore")
	if h.NameFragment != "Café de Flore" {
		t.Errorf("NameFragment = %q, want %q", h.NameFragment, "Café de Flore")
	}
	if h.PlaceID != nil || h.Coordinates != nil {
		t.Errorf("expected only a name, got %+v", h)
	}
	if h.Empty() {
		t.Error("hints with a name must not be empty")
	}
}

func TestExtractHints_BareRegionLinkIsEmpty(t *testing.T) {
	h := ExtractHints("https://www.google.com/maps")
	if !h.Empty() {
		t.Errorf("expected empty hints, got %+v", h)
	}
}

func TestAddressFragment(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "name then address",
			url:  "https://www.google.com/maps/place/Eiffel+Tower,+Av.+Gustave+Eiffel,+75007+Paris/@48.85,2.29,17z",
			want: "Av. Gustave Eiffel, 75007 Paris",
		},
		{
			name: "address only",
			url:  "https://www.google.com/maps/place/10+Downing+St",
			want: "10 Downing St",
		},
		{
			name: "plain name",
			url:  "https://www.google.com/maps/place/Louvre",
			want: "",
		},
		{
			name: "no place segment",
			url:  "https://www.google.com/maps/@1,2,3z",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddressFragment(tt.url); got != tt.want {
				t.Errorf("AddressFragment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLooksLikeAddress(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"221B Baker Street", true},
		{"Rue de Rivoli", true},
		{"Paris, France", true},
		{"Hauptstraße", true},
		{"Open now", false},
		{"Directions", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeAddress(tt.text); got != tt.want {
			t.Errorf("LooksLikeAddress(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestConsent(t *testing.T) {
	interstitial := "https://consent.google.com/ml?continue=https://www.google.com/maps/place/Big%2BBen&gl=GB&hl=en"
	if !IsConsentURL(interstitial) {
		t.Fatal("expected consent interstitial to be recognised")
	}
	got, ok := ConsentContinue(interstitial)
	if !ok {
		t.Fatal("expected continue target")
	}
	if got != "https://www.google.com/maps/place/Big+Ben" {
		t.Errorf("ConsentContinue() = %q", got)
	}

	if IsConsentURL("https://www.google.com/maps/place/X") {
		t.Error("regular map URL flagged as consent")
	}
	if _, ok := ConsentContinue("https://consent.google.com/ml?continue=javascript:alert(1)"); ok {
		t.Error("non-http continue target accepted")
	}
}

func TestIsGoogleHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"www.google.com", true},
		{"maps.google.co.uk", true},
		{"google.de", true},
		{"consent.google.com", true},
		{"maps.app.goo.gl", true},
		{"evilgoogle.com", false},
		{"google.com.evil.net", false},
	}
	for _, tt := range tests {
		if got := IsGoogleHost(tt.host); got != tt.want {
			t.Errorf("IsGoogleHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
