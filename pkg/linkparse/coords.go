package linkparse

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/geo"
)

// ViewportEpsilonMeters is how far an embedded pair must sit from the
// viewport center before it is treated as the place rather than the camera.
const ViewportEpsilonMeters = 11.0

const number = `(-?\d{1,3}(?:\.\d+)?)`

var (
	markerPairRe   = regexp.MustCompile(`!1s[^!]+(?:![^!]*)*?!3d` + number + `!4d` + number)
	embeddedPairRe = regexp.MustCompile(`!3d` + number + `!4d` + number)
	viewportRe     = regexp.MustCompile(`@` + number + `,` + number)
	placePathRe    = regexp.MustCompile(`/(?:place|search)/\s*` + number + `\s*,\s*\+?\s*` + number + `\s*(?:[/?@]|$)`)
	bareCoordsRe   = regexp.MustCompile(`^\s*` + number + `\s*,\s*\+?\s*` + number + `\s*$`)
)

// coordinateParams are the query keys that may carry a literal "lat,lng".
var coordinateParams = []string{"q", "query", "ll", "center", "destination", "daddr"}

// coordinateStrategy is one rule of the tie-break chain. Strategies are pure
// and report false when they have nothing valid to offer.
type coordinateStrategy struct {
	rule models.CoordinateRule
	find func(u *parsedLink) (models.Coordinates, bool)
}

// coordinateChain is evaluated left to right, first success wins.
var coordinateChain = []coordinateStrategy{
	{rule: models.RulePlaceMarker, find: pairAfterPlaceMarker},
	{rule: models.RulePlacePath, find: pairInPlacePath},
	{rule: models.RuleAwayFromCamera, find: pairAwayFromViewport},
	{rule: models.RuleLastEmbedded, find: lastEmbeddedPair},
	{rule: models.RuleQueryParameter, find: pairInQuery},
	{rule: models.RuleViewportCenter, find: viewportCenter},
}

// parsedLink carries the raw and decoded forms of a URL so each strategy
// does not re-parse it.
type parsedLink struct {
	raw     string
	decoded string
	query   url.Values
}

func newParsedLink(rawURL string) *parsedLink {
	p := &parsedLink{raw: rawURL, decoded: rawURL}
	if decoded, err := url.QueryUnescape(rawURL); err == nil {
		p.decoded = decoded
	}
	if u, err := url.Parse(rawURL); err == nil {
		p.query = u.Query()
	}
	return p
}

// resolveCoordinates runs the tie-break chain.
func resolveCoordinates(p *parsedLink) (*models.Coordinates, models.CoordinateRule) {
	for _, s := range coordinateChain {
		if c, ok := s.find(p); ok {
			return &c, s.rule
		}
	}
	return nil, ""
}

func pairAfterPlaceMarker(p *parsedLink) (models.Coordinates, bool) {
	m := markerPairRe.FindStringSubmatch(p.raw)
	if m == nil {
		return models.Coordinates{}, false
	}
	return parsePair(m[1], m[2])
}

func pairInPlacePath(p *parsedLink) (models.Coordinates, bool) {
	m := placePathRe.FindStringSubmatch(p.decoded)
	if m == nil {
		return models.Coordinates{}, false
	}
	return parsePair(m[1], m[2])
}

func pairAwayFromViewport(p *parsedLink) (models.Coordinates, bool) {
	camera, ok := viewportCenter(p)
	if !ok {
		return models.Coordinates{}, false
	}
	for _, c := range embeddedPairs(p) {
		if geo.Distance(c, camera) > ViewportEpsilonMeters {
			return c, true
		}
	}
	return models.Coordinates{}, false
}

func lastEmbeddedPair(p *parsedLink) (models.Coordinates, bool) {
	pairs := embeddedPairs(p)
	if len(pairs) == 0 {
		return models.Coordinates{}, false
	}
	return pairs[len(pairs)-1], true
}

func pairInQuery(p *parsedLink) (models.Coordinates, bool) {
	for _, key := range coordinateParams {
		if c, ok := ParseCoordinates(p.query.Get(key)); ok {
			return c, true
		}
	}
	return models.Coordinates{}, false
}

func viewportCenter(p *parsedLink) (models.Coordinates, bool) {
	m := viewportRe.FindStringSubmatch(p.raw)
	if m == nil {
		return models.Coordinates{}, false
	}
	return parsePair(m[1], m[2])
}

// embeddedPairs returns every valid !3d!4d pair in order of appearance.
func embeddedPairs(p *parsedLink) []models.Coordinates {
	var pairs []models.Coordinates
	for _, m := range embeddedPairRe.FindAllStringSubmatch(p.raw, -1) {
		if c, ok := parsePair(m[1], m[2]); ok {
			pairs = append(pairs, c)
		}
	}
	return pairs
}

// ParseCoordinates reads a literal "lat,lng" string.
func ParseCoordinates(s string) (models.Coordinates, bool) {
	m := bareCoordsRe.FindStringSubmatch(s)
	if m == nil {
		return models.Coordinates{}, false
	}
	return parsePair(m[1], m[2])
}

// parsePair discards malformed or out-of-range values instead of clamping them.
func parsePair(latStr, lngStr string) (models.Coordinates, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	if !geo.Valid(lat, lng) {
		return models.Coordinates{}, false
	}
	return models.Coordinates{Lat: lat, Lng: lng}, true
}
