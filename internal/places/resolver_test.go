package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyatyapatya/GUH2025/internal/geo"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSearch serves canned text-search responses and records the queries.
func fakeSearch(t *testing.T, queries *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		var body struct {
			TextQuery string `json:"textQuery"`
			Bias      *struct {
				Circle struct {
					Center struct {
						Latitude  float64 `json:"latitude"`
						Longitude float64 `json:"longitude"`
					} `json:"center"`
					Radius float64 `json:"radius"`
				} `json:"circle"`
			} `json:"locationBias"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*queries = append(*queries, body.TextQuery)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"places": []map[string]interface{}{
				{
					"displayName":     map[string]string{"text": "Grantham"},
					"location":        map[string]float64{"latitude": 52.91, "longitude": -0.64},
					"rating":          4.2,
					"userRatingCount": 120,
					"priceLevel":      "PRICE_LEVEL_MODERATE",
					"googleMapsUri":   "https://maps.google.com/?q=grantham",
				},
			},
		})
	}))
}

func TestNearestTown(t *testing.T) {
	var queries []string
	srv := fakeSearch(t, &queries)
	defer srv.Close()

	c := NewClient("test-key", "", nil, testLogger())
	c.searchURL = srv.URL

	town, err := c.NearestTown(context.Background(), geo.Point{Lat: 52.9, Lon: -0.6})
	require.NoError(t, err)
	require.NotNil(t, town)
	assert.Equal(t, "Grantham", town.Name)
	assert.InDelta(t, 52.91, town.Lat, 1e-9)
	assert.Equal(t, []string{"town"}, queries)
}

func TestNearestTownWithoutAPIKey(t *testing.T) {
	c := NewClient("", "", nil, testLogger())
	town, err := c.NearestTown(context.Background(), geo.Point{Lat: 1, Lon: 1})
	assert.NoError(t, err)
	assert.Nil(t, town)
}

func TestNearestTownServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-key", "", nil, testLogger())
	c.searchURL = srv.URL

	_, err := c.NearestTown(context.Background(), geo.Point{Lat: 1, Lon: 1})
	assert.Error(t, err)
}

func TestPlaceDetails(t *testing.T) {
	var queries []string
	srv := fakeSearch(t, &queries)
	defer srv.Close()

	c := NewClient("test-key", "", nil, testLogger())
	c.searchURL = srv.URL

	mid := geo.Point{Lat: 52.9, Lon: -0.6}
	details, err := c.PlaceDetails(context.Background(), "Grantham", mid)
	require.NoError(t, err)
	assert.Equal(t, "Grantham", details["city"])
	assert.Equal(t, []string{"hotel in Grantham", "local tourist attraction in Grantham"}, queries)

	hotels := details["hotels"].([]map[string]interface{})
	require.Len(t, hotels, 1)
	assert.Equal(t, "Grantham", hotels[0]["name"])
	assert.Equal(t, "$$", hotels[0]["price"])
	assert.InDelta(t, geo.HaversineKm(mid, geo.Point{Lat: 52.91, Lon: -0.64}),
		hotels[0]["distance_km"].(float64), 1e-9)

	attractions := details["attractions"].([]map[string]interface{})
	require.Len(t, attractions, 1)
	_, hasPrice := attractions[0]["price"]
	assert.False(t, hasPrice, "attractions carry no price level")
}

func TestFormatPriceLevel(t *testing.T) {
	assert.Equal(t, "Free", formatPriceLevel("PRICE_LEVEL_FREE"))
	assert.Equal(t, "$$$$", formatPriceLevel("PRICE_LEVEL_VERY_EXPENSIVE"))
	assert.Equal(t, "", formatPriceLevel(""))
	assert.Equal(t, "", formatPriceLevel("PRICE_LEVEL_UNSPECIFIED"))
}
