package models

// ClassifiedLink is the result of classifying a piece of shared text.
// CanonicalURL is empty whenever IsValid is false.
type ClassifiedLink struct {
	IsValid      bool   `json:"is_valid" yaml:"is_valid"`
	CanonicalURL string `json:"canonical_url,omitempty" yaml:"canonical_url,omitempty"`
	IsShortened  bool   `json:"is_shortened" yaml:"is_shortened"`
}

// IdentifierKind tags how an extracted place identifier can be used.
type IdentifierKind string

const (
	// IdentifierOpaque can be passed to a detail lookup.
	IdentifierOpaque IdentifierKind = "opaque"
	// IdentifierCoordinate is a hex feature id (0x…:0x…); it must go through search.
	IdentifierCoordinate IdentifierKind = "coordinate"
)

// PlaceIdentifier is an external place reference pulled from a URL.
type PlaceIdentifier struct {
	Value string         `json:"value" yaml:"value"`
	Kind  IdentifierKind `json:"kind" yaml:"kind"`
}

// CoordinateRule names the tie-break rule that produced a coordinate pair.
type CoordinateRule string

const (
	RulePlaceMarker    CoordinateRule = "place_marker"
	RulePlacePath      CoordinateRule = "place_path"
	RuleAwayFromCamera CoordinateRule = "away_from_viewport"
	RuleLastEmbedded   CoordinateRule = "last_embedded"
	RuleQueryParameter CoordinateRule = "query_parameter"
	RuleViewportCenter CoordinateRule = "viewport_center"
)

// Authoritative reports whether the rule reads coordinates scoped to the place itself.
func (r CoordinateRule) Authoritative() bool {
	return r == RulePlaceMarker || r == RulePlacePath
}

// ExtractedHints are the best-effort signals read from a URL before any network call.
type ExtractedHints struct {
	PlaceID        *PlaceIdentifier `json:"place_id,omitempty" yaml:"place_id,omitempty"`
	Coordinates    *Coordinates     `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	CoordinateRule CoordinateRule   `json:"coordinate_rule,omitempty" yaml:"coordinate_rule,omitempty"`
	NameFragment   string           `json:"name_fragment,omitempty" yaml:"name_fragment,omitempty"`
}

// Empty reports whether nothing usable was extracted.
func (h ExtractedHints) Empty() bool {
	return h.PlaceID == nil && h.Coordinates == nil && h.NameFragment == ""
}

// OpaqueID returns the identifier when it can be used for a detail lookup.
func (h ExtractedHints) OpaqueID() (string, bool) {
	if h.PlaceID == nil || h.PlaceID.Kind != IdentifierOpaque {
		return "", false
	}
	return h.PlaceID.Value, true
}
