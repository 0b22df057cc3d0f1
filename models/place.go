// Package models defines the data structures shared by the resolution pipeline.
package models

// Placeholder values used when a source could not provide the field.
const (
	UnknownPlaceName = "Unknown Place"
	UnknownAddress   = "Address not available"
)

// Coordinates is a WGS 84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// NormalizedPlace is the output contract of the resolution pipeline.
// Name and Address are never empty; Lat/Lng are always in range.
type NormalizedPlace struct {
	Name         string   `json:"name" yaml:"name"`
	Address      string   `json:"address" yaml:"address"`
	Lat          float64  `json:"lat" yaml:"lat"`
	Lng          float64  `json:"lng" yaml:"lng"`
	ExternalID   string   `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Types        []string `json:"types,omitempty" yaml:"types,omitempty"`
	Website      string   `json:"website,omitempty" yaml:"website,omitempty"`
	Phone        string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Rating       *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	RatingCount  *int     `json:"rating_count,omitempty" yaml:"rating_count,omitempty"`
	OpeningHours []string `json:"opening_hours,omitempty" yaml:"opening_hours,omitempty"`
	SourceURL    string   `json:"source_url" yaml:"source_url"`
}

// Coordinates returns the place location as a pair.
func (p *NormalizedPlace) Coordinates() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// ScrapedFields holds whatever the rendered map page yielded.
// Empty strings and nil pointers mean the field was not found.
type ScrapedFields struct {
	Name         string
	Address      string
	Category     string
	Website      string
	Phone        string
	Rating       *float64
	RatingCount  *int
	OpeningHours []string
	Coordinates  *Coordinates
	ResolvedURL  string
}

// HasIdentity reports whether the scrape produced a name or an address.
func (f *ScrapedFields) HasIdentity() bool {
	return f != nil && (f.Name != "" || f.Address != "")
}
