package linkparse

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/placeshelf/models"
)

var (
	opaqueIDRe  = regexp.MustCompile(`(?:!1s|place_id:)(ChI[A-Za-z0-9_-]{8,})`)
	hexIDRe     = regexp.MustCompile(`(?i)!1s(0x[0-9a-f]+:0x[0-9a-f]+)`)
	idParamRe   = regexp.MustCompile(`[?&](?:query_place_id|place_id|ftid)=([^&#]+)`)
	hexIDFullRe = regexp.MustCompile(`(?i)^0x[0-9a-f]+:0x[0-9a-f]+$`)
	namePathRe  = regexp.MustCompile(`/maps/(?:place|search)/([^/@?#]+)`)
)

type identifierStrategy func(rawURL string) (*models.PlaceIdentifier, bool)

// identifierChain is evaluated in priority order.
var identifierChain = []identifierStrategy{
	opaqueIdentifier,
	hexIdentifier,
	parameterIdentifier,
}

// ExtractHints pulls a place identifier, coordinates and a name fragment out
// of a canonical map URL. Everything is best effort: a field that cannot be
// read cleanly is left empty.
func ExtractHints(rawURL string) models.ExtractedHints {
	var hints models.ExtractedHints

	for _, find := range identifierChain {
		if id, ok := find(rawURL); ok {
			hints.PlaceID = id
			break
		}
	}

	p := newParsedLink(rawURL)
	hints.Coordinates, hints.CoordinateRule = resolveCoordinates(p)
	hints.NameFragment = NameFragment(rawURL)

	return hints
}

func opaqueIdentifier(rawURL string) (*models.PlaceIdentifier, bool) {
	m := opaqueIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, false
	}
	return &models.PlaceIdentifier{Value: m[1], Kind: models.IdentifierOpaque}, true
}

func hexIdentifier(rawURL string) (*models.PlaceIdentifier, bool) {
	m := hexIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, false
	}
	return &models.PlaceIdentifier{Value: m[1], Kind: models.IdentifierCoordinate}, true
}

func parameterIdentifier(rawURL string) (*models.PlaceIdentifier, bool) {
	m := idParamRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, false
	}
	value, err := url.QueryUnescape(m[1])
	if err != nil || strings.TrimSpace(value) == "" {
		return nil, false
	}
	value = strings.TrimSpace(value)
	kind := models.IdentifierOpaque
	if hexIDFullRe.MatchString(value) {
		kind = models.IdentifierCoordinate
	}
	return &models.PlaceIdentifier{Value: value, Kind: kind}, true
}

// NameFragment decodes the /place/<name> or /search/<name> path segment.
// Segments that are just a coordinate pair are not names.
func NameFragment(rawURL string) string {
	segment := placeSegment(rawURL)
	if segment == "" {
		return ""
	}
	if _, ok := ParseCoordinates(segment); ok {
		return ""
	}
	return segment
}

// AddressFragment derives an address-like string from the place path segment.
// "Eiffel Tower, Av. Gustave Eiffel, 75007 Paris" yields everything after
// the first comma; a segment without a comma is returned only when it looks
// like an address on its own.
func AddressFragment(rawURL string) string {
	segment := NameFragment(rawURL)
	if segment == "" {
		return ""
	}
	if idx := strings.Index(segment, ","); idx >= 0 {
		if rest := strings.TrimSpace(segment[idx+1:]); rest != "" {
			return rest
		}
	}
	if LooksLikeAddress(segment) {
		return segment
	}
	return ""
}

func placeSegment(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.EscapedPath()
	}
	m := namePathRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	decoded, err := url.PathUnescape(strings.ReplaceAll(m[1], "+", " "))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(decoded), " ")
}

var (
	digitRe    = regexp.MustCompile(`\d`)
	roadWordRe = regexp.MustCompile(`(?i)\b(?:street|st|road|rd|avenue|ave|av|boulevard|blvd|lane|ln|drive|dr|way|highway|hwy|square|sq|court|ct|rue|via|calle|carrer|piazza|plaza|quai|weg|gasse|platz|allee)\b|stra(?:ß|ss)e\b`)
)

// LooksLikeAddress accepts text containing a digit, a comma, or a road-type word.
func LooksLikeAddress(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return strings.Contains(text, ",") || digitRe.MatchString(text) || roadWordRe.MatchString(text)
}
