package models

// MatchKind says which check produced a duplicate verdict.
type MatchKind string

const (
	MatchNone        MatchKind = ""
	MatchURL         MatchKind = "url"
	MatchCoordinates MatchKind = "coordinates"
)

// DuplicateVerdict is computed per check and never persisted.
type DuplicateVerdict struct {
	IsDuplicate     bool      `json:"is_duplicate" yaml:"is_duplicate"`
	MatchedRecordID string    `json:"matched_record_id,omitempty" yaml:"matched_record_id,omitempty"`
	MatchKind       MatchKind `json:"match_kind,omitempty" yaml:"match_kind,omitempty"`
	DistanceMeters  float64   `json:"distance_meters,omitempty" yaml:"distance_meters,omitempty"`
}
