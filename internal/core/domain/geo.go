package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
}

// Valid reports whether the point is finite and within WGS 84 ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// BoundingBox is a map selection rectangle given by two opposite corners.
type BoundingBox struct {
	TopLeft     GeoPoint `json:"top_left"`
	BottomRight GeoPoint `json:"bottom_right"`
}

// Bounds normalises the corners so the box works however it was dragged.
func (b BoundingBox) Bounds() Bounds {
	return Bounds{
		MinLat: math.Min(b.TopLeft.Lat, b.BottomRight.Lat),
		MaxLat: math.Max(b.TopLeft.Lat, b.BottomRight.Lat),
		MinLon: math.Min(b.TopLeft.Lon, b.BottomRight.Lon),
		MaxLon: math.Max(b.TopLeft.Lon, b.BottomRight.Lon),
	}
}

// Contains reports whether p lies inside the rectangle, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return b.Bounds().Contains(p)
}
