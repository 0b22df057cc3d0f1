package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/linkparse"
)

// strategy pulls one candidate value out of a rendered place page.
type strategy func(doc *goquery.Document) string

// cascade returns the first candidate accepted by valid.
func cascade(doc *goquery.Document, strategies []strategy, valid func(string) bool) string {
	for _, s := range strategies {
		v := cleanText(s(doc))
		if v == "" {
			continue
		}
		if valid == nil || valid(v) {
			return v
		}
	}
	return ""
}

func text(selector string) strategy {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

func attr(selector, name string) strategy {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr(name)
		return v
	}
}

// labelled reads an aria-label of the form "Address: 10 Downing St".
func labelled(selector string) strategy {
	return func(doc *goquery.Document) string {
		v, ok := doc.Find(selector).First().Attr("aria-label")
		if !ok {
			return ""
		}
		if i := strings.Index(v, ":"); i >= 0 {
			return v[i+1:]
		}
		return v
	}
}

var spaceRe = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		// private-use glyphs from the icon font
		if r >= 0xE000 && r <= 0xF8FF {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

var nameStrategies = []strategy{
	text("h1.DUwDvf"),
	text(`div[role="main"] h1`),
	text("h1"),
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
		return trimTitle(v)
	},
}

// trimTitle strips the site suffix and address tail from a page title.
func trimTitle(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{" - Google Maps", " – Google Maps", " - Google Search"} {
		s = strings.TrimSuffix(s, suffix)
	}
	if i := strings.Index(s, " · "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func validName(s string) bool {
	switch strings.ToLower(s) {
	case "google maps", "maps", "results", "google":
		return false
	}
	return true
}

var addressStrategies = []strategy{
	text(`button[data-item-id="address"] .Io6YTe`),
	labelled(`button[data-item-id="address"]`),
	labelled(`[data-tooltip="Copy address"]`),
	text(`[data-item-id="address"]`),
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`meta[itemprop="address"]`).Attr("content")
		return v
	},
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
		if i := strings.Index(v, " · "); i >= 0 {
			return trimTitle(v[i+len(" · "):])
		}
		return ""
	},
}

var categoryStrategies = []strategy{
	text("button.DkEaL"),
	text(`button[jsaction*="category"]`),
	text("span.DkEaL"),
}

var websiteStrategies = []strategy{
	attr(`a[data-item-id="authority"]`, "href"),
	attr(`a[data-item-id="website"]`, "href"),
	attr(`a[aria-label^="Website"]`, "href"),
}

var phoneStrategies = []strategy{
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`button[data-item-id^="phone:tel:"]`).First().Attr("data-item-id")
		return strings.TrimPrefix(v, "phone:tel:")
	},
	text(`button[data-item-id^="phone"] .Io6YTe`),
	labelled(`button[aria-label^="Phone:"]`),
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`a[href^="tel:"]`).First().Attr("href")
		return strings.TrimPrefix(v, "tel:")
	},
}

var ratingStrategies = []strategy{
	text(`div.F7nice span[aria-hidden="true"]`),
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`span[role="img"][aria-label*="star"]`).First().Attr("aria-label")
		return v
	},
}

var ratingCountStrategies = []strategy{
	func(doc *goquery.Document) string {
		v, _ := doc.Find(`div.F7nice span[aria-label$="reviews"]`).First().Attr("aria-label")
		return v
	},
	text(`div.F7nice span[aria-label$="reviews"]`),
	text(`button[jsaction*="reviewChart"] span`),
}

var (
	decimalRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	countRe   = regexp.MustCompile(`\d[\d,.\s]*`)
)

func parseRating(s string) *float64 {
	m := decimalRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

func parseCount(s string) *int {
	m := countRe.FindString(s)
	if m == "" {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

// openingHours reads the weekly table, falling back to the summary label.
func openingHours(doc *goquery.Document) []string {
	var hours []string
	doc.Find("table.eK4R0e tr, table.WgFkxc tr").Each(func(_ int, row *goquery.Selection) {
		day := cleanText(row.Find("td").First().Text())
		times := cleanText(row.Find("td").Eq(1).Text())
		if v, ok := row.Find("td").Eq(1).Attr("aria-label"); ok && times == "" {
			times = cleanText(v)
		}
		if day != "" && times != "" {
			hours = append(hours, day+": "+times)
		}
	})
	if len(hours) > 0 {
		return hours
	}

	label, ok := doc.Find("div.t39EBf[aria-label]").First().Attr("aria-label")
	if !ok {
		return nil
	}
	label = strings.TrimSuffix(label, ". Hide open hours for the week")
	for _, part := range strings.Split(label, ";") {
		if p := cleanText(strings.TrimSuffix(part, ".")); p != "" {
			hours = append(hours, p)
		}
	}
	return hours
}

// ExtractFields reads place details out of a rendered place page. finalURL is
// the address the page ended up on after redirects; it supplies coordinates
// and the fallback address, or failing that the place name from its path.
func ExtractFields(html, finalURL string) (*models.ScrapedFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	fields := &models.ScrapedFields{
		ResolvedURL: finalURL,
		Name:        cascade(doc, nameStrategies, validName),
		Address:     cascade(doc, addressStrategies, linkparse.LooksLikeAddress),
		Category:    cascade(doc, categoryStrategies, nil),
		Website:     cascade(doc, websiteStrategies, validWebsite),
		Phone:       cascade(doc, phoneStrategies, validPhone),
	}

	if fields.Name == "" {
		fields.Name = readableTitle(html, finalURL)
	}
	if fields.Address == "" {
		fields.Address = linkparse.AddressFragment(finalURL)
	}
	if fields.Address == "" {
		// A bare place name from the URL is a weak stand-in, but better than nothing.
		fields.Address = linkparse.NameFragment(finalURL)
	}
	if r := cascade(doc, ratingStrategies, nil); r != "" {
		fields.Rating = parseRating(r)
	}
	if c := cascade(doc, ratingCountStrategies, nil); c != "" {
		fields.RatingCount = parseCount(c)
	}
	fields.OpeningHours = openingHours(doc)

	if hints := linkparse.ExtractHints(finalURL); hints.Coordinates != nil {
		c := *hints.Coordinates
		fields.Coordinates = &c
	}
	return fields, nil
}

// readableTitle is the last-resort name: the document title as distilled by readability.
func readableTitle(html, finalURL string) string {
	u, err := url.Parse(finalURL)
	if err != nil {
		return ""
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), u)
	if err != nil {
		return ""
	}
	title := trimTitle(article.Title)
	if !validName(title) {
		return ""
	}
	return title
}

func validWebsite(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

var phoneRe = regexp.MustCompile(`^\+?[\d\s().-]{5,}$`)

func validPhone(s string) bool {
	return phoneRe.MatchString(s)
}
