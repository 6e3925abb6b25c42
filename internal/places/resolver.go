// internal/places/resolver.go
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tyatyapatya/GUH2025/internal/geo"
)

const (
	textSearchURL = "https://places.googleapis.com/v1/places:searchText"

	// searchRadiusMeters is the location-bias circle around the midpoint.
	searchRadiusMeters = 50000.0
)

// Client resolves a geometric midpoint to a real, named nearby place and
// fetches point-of-interest data around it, using the Places text-search
// API. Every call is best effort: a missing API key or a failed request
// yields a nil result, never a fatal error for the engine.
type Client struct {
	httpClient *http.Client
	searchURL  string
	apiKey     string
	geminiKey  string
	cache      *Cache
	logger     *logrus.Logger
}

// NewClient builds a resolver. apiKey may be empty, in which case every
// lookup resolves to nothing. cache may be nil for uncached operation.
func NewClient(apiKey, geminiKey string, cache *Cache, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		searchURL:  textSearchURL,
		apiKey:     apiKey,
		geminiKey:  geminiKey,
		cache:      cache,
		logger:     logger,
	}
}

// place mirrors the subset of the text-search response we consume.
type place struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating          float64 `json:"rating"`
	UserRatingCount int     `json:"userRatingCount"`
	PriceLevel      string  `json:"priceLevel"`
	GoogleMapsURI   string  `json:"googleMapsUri"`
	Photos          []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

// NearestTown returns a named town close to the midpoint, or nil if none was
// found or the API is not configured.
func (c *Client) NearestTown(ctx context.Context, mid geo.Point) (*geo.NamedPoint, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	key := fmt.Sprintf("halfway:town:%.3f,%.3f", mid.Lat, mid.Lon)
	var cached geo.NamedPoint
	if c.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	results, err := c.searchText(ctx, "town", &mid)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	town := geo.NamedPoint{
		Point: geo.Point{
			Lat: results[0].Location.Latitude,
			Lon: results[0].Location.Longitude,
		},
		Name: results[0].DisplayName.Text,
	}
	c.cache.set(ctx, key, town)
	return &town, nil
}

// PlaceDetails gathers hotels and attractions around the named place, each
// annotated with its great-circle distance from the midpoint, plus
// AI-generated flight suggestions when a Gemini key is configured. The
// payload is delivered opaquely to clients as midpointDetails.
func (c *Client) PlaceDetails(ctx context.Context, name string, mid geo.Point) (map[string]interface{}, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	key := fmt.Sprintf("halfway:details:%s", name)
	var cached map[string]interface{}
	if c.cache.get(ctx, key, &cached) {
		return cached, nil
	}

	hotels, err := c.searchText(ctx, "hotel in "+name, &mid)
	if err != nil {
		return nil, err
	}
	attractions, err := c.searchText(ctx, "local tourist attraction in "+name, &mid)
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"city":        name,
		"hotels":      c.formatPlaces(hotels, mid, true),
		"attractions": c.formatPlaces(attractions, mid, false),
	}
	if flights := c.travelFlights(ctx, name); flights != nil {
		details["flights"] = flights
	}

	c.cache.set(ctx, key, details)
	return details, nil
}

// searchText issues one Places text-search request, optionally biased to a
// circle around the given point.
func (c *Client) searchText(ctx context.Context, query string, bias *geo.Point) ([]place, error) {
	body := map[string]interface{}{
		"textQuery": query,
	}
	if bias != nil {
		body["locationBias"] = map[string]interface{}{
			"circle": map[string]interface{}{
				"center": map[string]interface{}{
					"latitude":  bias.Lat,
					"longitude": bias.Lon,
				},
				"radius": searchRadiusMeters,
			},
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask",
		"places.displayName,places.location,places.rating,places.userRatingCount,places.priceLevel,places.googleMapsUri,places.photos.name")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places search %q: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places search %q: status %d", query, resp.StatusCode)
	}

	var decoded struct {
		Places []place `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("places search %q: decode: %w", query, err)
	}
	return decoded.Places, nil
}

func (c *Client) formatPlaces(results []place, mid geo.Point, withPrice bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, p := range results {
		entry := map[string]interface{}{
			"name":            p.DisplayName.Text,
			"rating":          p.Rating,
			"userRatingCount": p.UserRatingCount,
			"googleMapsUri":   p.GoogleMapsURI,
			"distance_km": geo.HaversineKm(mid, geo.Point{
				Lat: p.Location.Latitude,
				Lon: p.Location.Longitude,
			}),
		}
		if withPrice {
			entry["price"] = formatPriceLevel(p.PriceLevel)
		}
		if len(p.Photos) > 0 {
			entry["photo_url"] = c.photoURL(p.Photos[0].Name)
		}
		out = append(out, entry)
	}
	return out
}

func formatPriceLevel(level string) string {
	switch level {
	case "PRICE_LEVEL_FREE":
		return "Free"
	case "PRICE_LEVEL_INEXPENSIVE":
		return "$"
	case "PRICE_LEVEL_MODERATE":
		return "$$"
	case "PRICE_LEVEL_EXPENSIVE":
		return "$$$"
	case "PRICE_LEVEL_VERY_EXPENSIVE":
		return "$$$$"
	default:
		return ""
	}
}

func (c *Client) photoURL(resourceName string) string {
	if resourceName == "" {
		return ""
	}
	return fmt.Sprintf("https://places.googleapis.com/v1/%s/media?maxHeightPx=400&key=%s", resourceName, c.apiKey)
}
