package domain

import (
	"math"
	"time"
)

// Record is a single GPS observation from the traffic trace dataset.
type Record struct {
	Time      time.Time `json:"time" msgpack:"time"`
	Speed     float64   `json:"speed" msgpack:"speed"`
	Latitude  float64   `json:"latitude" msgpack:"latitude"`
	Longitude float64   `json:"longitude" msgpack:"longitude"`
}

// Location returns the record's coordinates as a GeoPoint.
func (r Record) Location() GeoPoint {
	return GeoPoint{Lat: r.Latitude, Lon: r.Longitude}
}

// HasTime reports whether the timestamp is set.
func (r Record) HasTime() bool {
	return !r.Time.IsZero()
}

// HasLocation reports whether the coordinates are finite and on the globe.
func (r Record) HasLocation() bool {
	return r.Location().Valid()
}

// Valid reports whether all four fields are present and well-typed.
func (r Record) Valid() bool {
	if math.IsNaN(r.Speed) || math.IsInf(r.Speed, 0) || r.Speed < 0 {
		return false
	}
	return r.HasTime() && r.HasLocation()
}

// Table is an ordered sequence of records sharing one schema.
// A nil or zero-length Table is an empty table; absence is tracked
// separately by WorkingSet.
type Table []Record

// InUTC moves every timestamp in t to UTC in place. Time-of-day and date
// predicates read the UTC wall clock regardless of where a table came from.
func (t Table) InUTC() {
	for i := range t {
		t[i].Time = t[i].Time.UTC()
	}
}

// Len returns the number of records.
func (t Table) Len() int { return len(t) }

// Clone returns a copy that does not share backing storage with t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Equal reports whether both tables hold the same records in the same order.
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		a, b := t[i], other[i]
		if !a.Time.Equal(b.Time) || a.Speed != b.Speed ||
			a.Latitude != b.Latitude || a.Longitude != b.Longitude {
			return false
		}
	}
	return true
}

// Extent returns the coordinate bounds of all records with a usable location.
// ok is false when no record has one.
func (t Table) Extent() (b Bounds, ok bool) {
	for _, r := range t {
		if !r.HasLocation() {
			continue
		}
		if !ok {
			b = Bounds{MinLat: r.Latitude, MaxLat: r.Latitude, MinLon: r.Longitude, MaxLon: r.Longitude}
			ok = true
			continue
		}
		b.MinLat = math.Min(b.MinLat, r.Latitude)
		b.MaxLat = math.Max(b.MaxLat, r.Latitude)
		b.MinLon = math.Min(b.MinLon, r.Longitude)
		b.MaxLon = math.Max(b.MaxLon, r.Longitude)
	}
	return b, ok
}

// TimeSpan returns the earliest and latest timestamps in the table.
func (t Table) TimeSpan() (first, last time.Time, ok bool) {
	for _, r := range t {
		if !r.HasTime() {
			continue
		}
		if !ok || r.Time.Before(first) {
			first = r.Time
		}
		if !ok || r.Time.After(last) {
			last = r.Time
		}
		ok = true
	}
	return first, last, ok
}

// Speeds returns the valid speed values in source order.
func (t Table) Speeds() []float64 {
	out := make([]float64, 0, len(t))
	for _, r := range t {
		if math.IsNaN(r.Speed) || math.IsInf(r.Speed, 0) || r.Speed < 0 {
			continue
		}
		out = append(out, r.Speed)
	}
	return out
}
