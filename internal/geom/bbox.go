package geom

import "math"

// BBox is a geographic bounding box. South/West are the minimum latitude and
// longitude, North/East the maximum.
type BBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// ComputeBBox returns the bounding box of a geographic path. The zero box is
// returned for an empty path.
func ComputeBBox(coords []LatLon) BBox {
	if len(coords) == 0 {
		return BBox{}
	}
	b := BBox{
		South: coords[0].Lat, North: coords[0].Lat,
		West: coords[0].Lon, East: coords[0].Lon,
	}
	for _, c := range coords[1:] {
		b.South = math.Min(b.South, c.Lat)
		b.North = math.Max(b.North, c.Lat)
		b.West = math.Min(b.West, c.Lon)
		b.East = math.Max(b.East, c.Lon)
	}
	return b
}

// MidLat returns the latitude of the box center.
func (b BBox) MidLat() float64 { return (b.South + b.North) / 2 }

// Pad expands the box by the given ground distance on every side, clamped to
// the WGS84 domain.
func (b BBox) Pad(paddingM float64) BBox {
	if paddingM <= 0 {
		return b
	}
	latPad := paddingM / MetersPerDegreeLat
	lonScale := math.Cos(b.MidLat() * math.Pi / 180)
	lonPad := 0.0
	if math.Abs(lonScale) >= 1e-6 {
		lonPad = paddingM / (MetersPerDegreeLat * lonScale)
	}
	return BBox{
		South: math.Max(-90, b.South-latPad),
		West:  math.Max(-180, b.West-lonPad),
		North: math.Min(90, b.North+latPad),
		East:  math.Min(180, b.East+lonPad),
	}
}

// Size returns the ground width and height of the box in meters, measured
// through its center.
func (b BBox) Size() (width, height float64) {
	midLat := b.MidLat()
	midLon := (b.West + b.East) / 2
	width = HaversineM(LatLon{Lat: midLat, Lon: b.West}, LatLon{Lat: midLat, Lon: b.East})
	height = HaversineM(LatLon{Lat: b.South, Lon: midLon}, LatLon{Lat: b.North, Lon: midLon})
	return width, height
}

// AreaKm2 returns the approximate box area in square kilometers.
func (b BBox) AreaKm2() float64 {
	w, h := b.Size()
	return w * h / 1e6
}

// Tiles splits the box into sub-boxes no larger than maxTileM on a side.
// Longitude steps are recomputed per latitude row, so tiles stay roughly
// square on the ground. A degenerate box, or a non-positive maxTileM,
// yields the box itself as the single tile.
func (b BBox) Tiles(maxTileM float64) []BBox {
	if maxTileM <= 0 {
		return []BBox{b}
	}
	var tiles []BBox
	latStep := maxTileM / MetersPerDegreeLat
	lat := b.South
	for lat < b.North-1e-9 {
		nextLat := math.Min(b.North, lat+latStep)
		midLat := (lat + nextLat) / 2
		lonScale := math.Cos(midLat * math.Pi / 180)
		lonStep := 360.0
		if math.Abs(lonScale) >= 1e-6 {
			lonStep = maxTileM / (MetersPerDegreeLat * lonScale)
		}
		lon := b.West
		rowAdded := false
		for lon < b.East-1e-9 {
			nextLon := math.Min(b.East, lon+lonStep)
			tiles = append(tiles, BBox{South: lat, West: lon, North: nextLat, East: nextLon})
			lon = nextLon
			rowAdded = true
		}
		if !rowAdded {
			tiles = append(tiles, BBox{South: lat, West: b.West, North: nextLat, East: b.East})
		}
		lat = nextLat
	}
	if len(tiles) == 0 {
		tiles = append(tiles, b)
	}
	return tiles
}
