package domain

import "time"

// GridRow is one record as rendered by the data table.
type GridRow struct {
	Record
	DisplayTime string `json:"display_time"` // MM/DD/YYYY hh:mm AM
}

// Marker is one point on the map.
type Marker struct {
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	Speed float64   `json:"speed"`
	Time  time.Time `json:"time"`
}

// Viewport positions the map camera.
type Viewport struct {
	Center GeoPoint `json:"center"`
	Zoom   float64  `json:"zoom"`
	Bounds *Bounds  `json:"bounds,omitempty"` // nil for the default view
}

// MapView is everything the map needs to render the working set.
type MapView struct {
	State    State    `json:"state"`
	Markers  []Marker `json:"markers"`
	Viewport Viewport `json:"viewport"`
}

// SpeedStats summarises the speed column.
type SpeedStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
}

// Summary describes a table for the dashboard header.
type Summary struct {
	Rows      int         `json:"rows"`
	FirstTime *time.Time  `json:"first_time,omitempty"`
	LastTime  *time.Time  `json:"last_time,omitempty"`
	Extent    *Bounds     `json:"extent,omitempty"`
	Speed     *SpeedStats `json:"speed,omitempty"`
}
