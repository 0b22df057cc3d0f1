// Package places is a client for the structured place API (Places API v1):
// detail lookup by opaque identifier and single-result text search.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/geo"
)

const (
	DefaultBaseURL           = "https://places.googleapis.com"
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 2

	// SearchRadiusMeters scopes a biased search around the hint coordinates.
	SearchRadiusMeters = 5000.0
)

// Only these fields are requested, and billed.
var placeFields = []string{
	"id",
	"displayName",
	"formattedAddress",
	"location",
	"rating",
	"userRatingCount",
	"websiteUri",
	"nationalPhoneNumber",
	"types",
	"regularOpeningHours",
}

var (
	detailsFieldMask = strings.Join(placeFields, ",")
	searchFieldMask  = "places." + strings.Join(placeFields, ",places.")
)

// ErrCoordinateIdentifier is returned by GetDetails for hex coordinate-pair
// identifiers, which the detail endpoint does not accept.
var ErrCoordinateIdentifier = errors.New("coordinate identifiers must be resolved via search")

// LanguageDetector guesses the ISO 639-1 code of a search query.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Languages         LanguageDetector
	Logger            *slog.Logger
}

type Client struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	limiter   *rate.Limiter
	languages LanguageDetector
	logger    *slog.Logger
}

// NewClient returns a client that authenticates every request with apiKey.
func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    apiKey,
		http:      opts.HTTPClient,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		languages: opts.Languages,
		logger:    opts.Logger,
	}
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type apiPlace struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string   `json:"formattedAddress"`
	Location            *latLng  `json:"location"`
	Rating              *float64 `json:"rating"`
	UserRatingCount     *int     `json:"userRatingCount"`
	WebsiteURI          string   `json:"websiteUri"`
	NationalPhoneNumber string   `json:"nationalPhoneNumber"`
	Types               []string `json:"types"`
	RegularOpeningHours *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
}

type searchRequest struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount"`
	LanguageCode   string        `json:"languageCode,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type searchResponse struct {
	Places []apiPlace `json:"places"`
}

// GetDetails looks a place up by opaque identifier. A nil place with a nil
// error means the API had no usable answer: a non-2xx status or a result
// without a location.
func (c *Client) GetDetails(ctx context.Context, externalID string) (*models.NormalizedPlace, error) {
	id := strings.TrimPrefix(strings.TrimSpace(externalID), "places/")
	if id == "" {
		return nil, fmt.Errorf("empty place identifier")
	}
	if strings.HasPrefix(strings.ToLower(id), "0x") {
		return nil, ErrCoordinateIdentifier
	}

	endpoint := c.baseURL + "/v1/places/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build details request: %w", err)
	}

	var place apiPlace
	ok, err := c.do(req, detailsFieldMask, &place)
	if err != nil || !ok {
		return nil, err
	}
	return normalize(place), nil
}

// Search runs a text search and returns the first result. When bias is set
// the search is scoped to SearchRadiusMeters around it. A nil place with a
// nil error means no result.
func (c *Client) Search(ctx context.Context, query string, bias *models.Coordinates) (*models.NormalizedPlace, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	body := searchRequest{TextQuery: query, MaxResultCount: 1}
	if bias != nil {
		body.LocationBias = &locationBias{Circle: circle{
			Center: latLng{Latitude: bias.Lat, Longitude: bias.Lng},
			Radius: SearchRadiusMeters,
		}}
	}
	if c.languages != nil {
		if code, ok := c.languages.Detect(query); ok {
			body.LanguageCode = code
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp searchResponse
	ok, err := c.do(req, searchFieldMask, &resp)
	if err != nil || !ok {
		return nil, err
	}
	for _, p := range resp.Places {
		if place := normalize(p); place != nil {
			return place, nil
		}
	}
	c.logger.Debug("Search returned no usable results", "query", query)
	return nil, nil
}

// do sends req and decodes a 2xx body into out. It reports false for a
// non-2xx status.
func (c *Client) do(req *http.Request, fieldMask string, out any) (bool, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call places api: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Places API call", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Places API returned non-success status", "status", resp.StatusCode, "body", strings.TrimSpace(string(snippet)))
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode places response: %w", err)
	}
	return true, nil
}

// normalize maps an API place onto the shared record. Places without a
// location, or with one out of range, are unusable and yield nil.
func normalize(p apiPlace) *models.NormalizedPlace {
	if p.Location == nil || !geo.Valid(p.Location.Latitude, p.Location.Longitude) {
		return nil
	}

	place := &models.NormalizedPlace{
		Name:        models.UnknownPlaceName,
		Address:     p.FormattedAddress,
		Lat:         p.Location.Latitude,
		Lng:         p.Location.Longitude,
		ExternalID:  p.ID,
		Types:       p.Types,
		Website:     p.WebsiteURI,
		Phone:       p.NationalPhoneNumber,
		Rating:      p.Rating,
		RatingCount: p.UserRatingCount,
	}
	if p.DisplayName != nil && strings.TrimSpace(p.DisplayName.Text) != "" {
		place.Name = strings.TrimSpace(p.DisplayName.Text)
	}
	if place.Address == "" {
		place.Address = models.UnknownAddress
	}
	if p.RegularOpeningHours != nil {
		place.OpeningHours = p.RegularOpeningHours.WeekdayDescriptions
	}
	return place
}
