package places

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// Queries shorter than this are mostly proper nouns and are left undetected.
const minDetectRunes = 12

var searchLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Japanese,
}

// LinguaDetector detects the query language with lingua-go.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

func NewLinguaDetector() *LinguaDetector {
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(searchLanguages...).
		WithMinimumRelativeDistance(0.25).
		Build()
	return &LinguaDetector{detector: d}
}

// Detect returns the lower-case ISO 639-1 code when the language is clear.
func (l *LinguaDetector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minDetectRunes {
		return "", false
	}
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
