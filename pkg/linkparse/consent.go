package linkparse

import (
	"net/url"
	"regexp"
	"strings"
)

var googleHostRe = regexp.MustCompile(`(?i)^(?:[a-z0-9-]+\.)*google\.` + tldPattern + `$`)

// IsGoogleHost reports whether host belongs to the map service.
func IsGoogleHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return googleHostRe.MatchString(host) || host == "goo.gl" || host == "maps.app.goo.gl"
}

// IsConsentURL reports whether rawURL points at the regional consent interstitial.
func IsConsentURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return strings.HasPrefix(host, "consent.") && IsGoogleHost(host)
}

// ConsentContinue returns the destination the interstitial would send the
// user to after accepting, taken from its own "continue" parameter.
func ConsentContinue(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	target := strings.TrimSpace(u.Query().Get("continue"))
	if target == "" {
		return "", false
	}
	t, err := url.Parse(target)
	if err != nil || (t.Scheme != "http" && t.Scheme != "https") || t.Host == "" {
		return "", false
	}
	return target, true
}
