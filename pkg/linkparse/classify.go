// Package linkparse recognises shared map links and pulls place hints out of
// them without touching the network.
package linkparse

import (
	"regexp"
	"strings"

	"github.com/dtnitsch/placeshelf/models"
)

type linkPattern struct {
	name      string
	shortened bool
	re        *regexp.Regexp
}

const tldPattern = `(?:com\.[a-z]{2}|co\.[a-z]{2}|com|[a-z]{2})`

// A link must not continue a longer host name on either side, so
// evil-google.com and maps.google.com.evil.com are rejected. The
// boundaries sit outside capture group 1, which holds the link itself.
const (
	hostStart = `(?:^|[^\w.\-@/]|//)`
	linkEnd   = `(?:$|[\s<>"'\)\]]|[.,;!?](?:$|\s))`
	linkRest  = `[^\s<>"']*`
)

func linkRe(body string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + hostStart + `(` + body + `)` + linkEnd)
}

// linkPatterns are tried in order; the first one that matches wins.
var linkPatterns = []linkPattern{
	{
		name:      "app-short",
		shortened: true,
		re:        linkRe(`(?:https?://)?maps\.app\.goo\.gl/` + linkRest),
	},
	{
		name:      "goo-short",
		shortened: true,
		re:        linkRe(`(?:https?://)?(?:www\.)?goo\.gl/maps/` + linkRest),
	},
	{
		name: "google-maps-path",
		re:   linkRe(`(?:https?://)?(?:www\.)?google\.` + tldPattern + `/maps(?:[/?@#]` + linkRest + `)?`),
	},
	{
		name: "maps-subdomain",
		re:   linkRe(`(?:https?://)?maps\.google\.` + tldPattern + `(?:[/?#]` + linkRest + `)?`),
	},
}

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// IsMapLink reports whether text contains a supported map link.
func IsMapLink(text string) bool {
	_, ok := match(text)
	return ok
}

// ExtractLink returns the first map link found in text, normalized to carry a scheme.
func ExtractLink(text string) (string, bool) {
	m, ok := match(text)
	if !ok {
		return "", false
	}
	return m.url, true
}

// Classify composes IsMapLink and ExtractLink. It never fails; non-matching
// input yields an invalid link with no canonical URL.
func Classify(text string) models.ClassifiedLink {
	m, ok := match(text)
	if !ok {
		return models.ClassifiedLink{IsValid: false}
	}
	return models.ClassifiedLink{
		IsValid:      true,
		CanonicalURL: m.url,
		IsShortened:  m.shortened,
	}
}

// IsShortLink reports whether rawURL is on one of the shortener domains.
func IsShortLink(rawURL string) bool {
	m, ok := match(rawURL)
	return ok && m.shortened
}

type linkMatch struct {
	url       string
	shortened bool
}

func match(text string) (linkMatch, bool) {
	for _, p := range linkPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			continue
		}
		cleaned := SanitizeURL(m[1])
		if cleaned == "" {
			continue
		}
		return linkMatch{url: ensureScheme(cleaned), shortened: p.shortened}, true
	}
	return linkMatch{}, false
}

func ensureScheme(raw string) string {
	if schemeRe.MatchString(raw) {
		return raw
	}
	return "https://" + strings.TrimLeft(raw, "/")
}
