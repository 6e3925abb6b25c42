package geo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroidEmpty(t *testing.T) {
	_, ok := Centroid(nil)
	assert.False(t, ok)
	_, ok = Centroid([]Point{})
	assert.False(t, ok)
}

func TestCentroidEquatorPair(t *testing.T) {
	// Two points 90 degrees apart on the equator: the centroid stays on
	// their great circle, halfway between the longitudes.
	mid, ok := Centroid([]Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 90}})
	require.True(t, ok)
	assert.InDelta(t, 0.0, mid.Lat, 1e-9)
	assert.InDelta(t, 45.0, mid.Lon, 1e-9)
}

func TestCentroidThreeAxes(t *testing.T) {
	// Equator, 90E and the north pole: the mean vector is (1,1,1)/3, whose
	// latitude is atan(1/sqrt(2)) ~ 35.26 degrees at longitude 45.
	mid, ok := Centroid([]Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 90}, {Lat: 90, Lon: 0}})
	require.True(t, ok)
	assert.InDelta(t, 35.26, mid.Lat, 0.01)
	assert.InDelta(t, 45.0, mid.Lon, 1e-9)
}

func TestCentroidPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := []Point{
		{Lat: 51.5074, Lon: -0.1278},
		{Lat: 48.8566, Lon: 2.3522},
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 35.6762, Lon: 139.6503},
		{Lat: -33.8688, Lon: 151.2093},
	}
	want, ok := Centroid(points)
	require.True(t, ok)

	for i := 0; i < 20; i++ {
		shuffled := append([]Point(nil), points...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, ok := Centroid(shuffled)
		require.True(t, ok)
		assert.InDelta(t, want.Lat, got.Lat, 1e-9)
		assert.InDelta(t, want.Lon, got.Lon, 1e-9)
	}
}

func TestGreatCircleMidpointMatchesCentroidForTwo(t *testing.T) {
	a := Point{Lat: 52.2053, Lon: 0.1218}
	b := Point{Lat: 55.9533, Lon: -3.1883}
	gc := GreatCircleMidpoint(a, b)
	c, ok := Centroid([]Point{a, b})
	require.True(t, ok)
	assert.InDelta(t, gc.Lat, c.Lat, 1e-6)
	assert.InDelta(t, gc.Lon, c.Lon, 1e-6)
}

func TestHaversineZero(t *testing.T) {
	nyc := Point{Lat: 40.7128, Lon: -74.0060}
	assert.Equal(t, 0.0, HaversineKm(nyc, nyc))
}

func TestHaversineKnownDistance(t *testing.T) {
	london := Point{Lat: 51.5074, Lon: -0.1278}
	paris := Point{Lat: 48.8566, Lon: 2.3522}
	// ~344 km between the city centers.
	assert.InDelta(t, 344, HaversineKm(london, paris), 5)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lon: -180}.Valid())
	assert.False(t, Point{Lat: 90.1, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: 180.5}.Valid())
}
