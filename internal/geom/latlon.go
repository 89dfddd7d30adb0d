package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Geographic constants
const (
	// EarthRadiusM is the mean Earth radius used for haversine distances.
	EarthRadiusM = 6371000.0
	// MetersPerDegreeLat is the approximate ground distance of one degree of
	// latitude.
	MetersPerDegreeLat = 111320.0
)

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is inside the WGS84 domain.
func (c LatLon) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ParseLatLon parses a raw "lat, lon" string. It returns false when the text
// is not a plain coordinate pair, so callers can fall back to geocoding.
func ParseLatLon(text string) (LatLon, bool) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) != 2 {
		return LatLon{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LatLon{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LatLon{}, false
	}
	c := LatLon{Lat: lat, Lon: lon}
	if !c.Valid() {
		return LatLon{}, false
	}
	return c, true
}

// String renders the coordinate as "lat,lon" with six decimals, the format
// routing services accept.
func (c LatLon) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// HaversineM returns the great-circle distance between two coordinates in
// meters.
func HaversineM(a, b LatLon) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dphi := (b.Lat - a.Lat) * math.Pi / 180
	dlambda := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Projection is an equirectangular projection anchored at a reference
// latitude. It is accurate enough for route-scale extents (tens of km) and,
// unlike a full UTM transform, exactly invertible, which the snapping code
// relies on.
type Projection struct {
	Lat0 float64
}

// NewProjection anchors a projection at the given latitude.
func NewProjection(lat0 float64) Projection {
	return Projection{Lat0: lat0}
}

// ToLocal converts a geographic coordinate to local planar meters.
func (p Projection) ToLocal(c LatLon) Point {
	phi := c.Lat * math.Pi / 180
	lam := c.Lon * math.Pi / 180
	phi0 := p.Lat0 * math.Pi / 180
	return Point{
		X: EarthRadiusM * lam * math.Cos(phi0),
		Y: EarthRadiusM * phi,
	}
}

// FromLocal inverts ToLocal.
func (p Projection) FromLocal(pt Point) LatLon {
	phi0 := p.Lat0 * math.Pi / 180
	lat := pt.Y / EarthRadiusM * 180 / math.Pi
	cos0 := math.Cos(phi0)
	if math.Abs(cos0) < 1e-8 {
		return LatLon{Lat: lat}
	}
	lon := pt.X / (EarthRadiusM * cos0) * 180 / math.Pi
	return LatLon{Lat: lat, Lon: lon}
}

// ProjectPath converts a geographic path to local planar points with Z=0.
func (p Projection) ProjectPath(coords []LatLon) []Point {
	pts := make([]Point, len(coords))
	for i, c := range coords {
		pts[i] = p.ToLocal(c)
	}
	return pts
}
