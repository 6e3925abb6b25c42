// internal/geo/geo.go
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Point is an immutable latitude/longitude pair in degrees.
// Latitude is in [-90, 90], longitude in [-180, 180].
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the usual coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// NamedPoint is a Point carrying the human-readable name of a real place,
// e.g. the nearest reachable town to a computed midpoint.
type NamedPoint struct {
	Point
	Name string `json:"name"`
}

// Centroid returns the spherical centroid of the given points: each point is
// converted to a unit Cartesian vector, the vectors are averaged and the mean
// is converted back to latitude/longitude. Returns false for zero points.
// Poles and the antimeridian get no special handling beyond atan2.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var x, y, z float64
	for _, p := range points {
		lat := radians(p.Lat)
		lon := radians(p.Lon)
		x += math.Cos(lat) * math.Cos(lon)
		y += math.Cos(lat) * math.Sin(lon)
		z += math.Sin(lat)
	}
	n := float64(len(points))
	x /= n
	y /= n
	z /= n

	lon := math.Atan2(y, x)
	hyp := math.Sqrt(x*x + y*y)
	lat := math.Atan2(z, hyp)
	return Point{Lat: degrees(lat), Lon: degrees(lon)}, true
}

// GreatCircleMidpoint returns the midpoint of the great-circle arc between a
// and b. For two points this agrees with Centroid up to normalization; it is
// kept as a standalone primitive.
func GreatCircleMidpoint(a, b Point) Point {
	lat1, lon1 := radians(a.Lat), radians(a.Lon)
	lat2, lon2 := radians(b.Lat), radians(b.Lon)

	x := math.Cos(lat1)*math.Cos(lon1) + math.Cos(lat2)*math.Cos(lon2)
	y := math.Cos(lat1)*math.Sin(lon1) + math.Cos(lat2)*math.Sin(lon2)
	z := math.Sin(lat1) + math.Sin(lat2)

	norm := math.Sqrt(x*x + y*y + z*z)
	x /= norm
	y /= norm
	z /= norm

	return Point{
		Lat: degrees(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lon: degrees(math.Atan2(y, x)),
	}
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Point) float64 {
	lat1, lon1 := radians(a.Lat), radians(a.Lon)
	lat2, lon2 := radians(b.Lat), radians(b.Lon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
