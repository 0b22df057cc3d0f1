package linkparse

import (
	"regexp"
	"strings"
)

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL cleans up common copy-paste damage around a link: surrounding
// whitespace, markdown link syntax, and stray punctuation at either end.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	// Shared text often ends a sentence right after the link.
	for {
		trimmed := strings.TrimRight(cleaned, ",.)}]\"'>;!")
		if trimmed == cleaned {
			break
		}
		cleaned = trimmed
	}

	cleaned = strings.TrimLeft(cleaned, "([<\"'")

	return strings.TrimSpace(cleaned)
}
