// Package filter narrows a table with time-of-day, date and bounding-box
// predicates.
package filter

import (
	"github.com/samirrijal/trafficmap/internal/core/domain"
)

// Predicates is the set of active filters. A nil field is inactive.
type Predicates struct {
	Time  *domain.TimeRange   `json:"time,omitempty"`
	Dates *domain.DateRange   `json:"dates,omitempty"`
	Box   *domain.BoundingBox `json:"box,omitempty"`
}

// Empty reports whether no predicate is active.
func (p Predicates) Empty() bool {
	return p.Time == nil && p.Dates == nil && p.Box == nil
}

// Match reports whether r satisfies every active predicate. A record missing
// the field a predicate needs never matches it.
func (p Predicates) Match(r domain.Record) bool {
	if p.Time != nil && (!r.HasTime() || !p.Time.Contains(r.Time)) {
		return false
	}
	if p.Dates != nil && (!r.HasTime() || !p.Dates.Contains(r.Time)) {
		return false
	}
	if p.Box != nil {
		loc := r.Location()
		if !loc.Valid() || !p.Box.Contains(loc) {
			return false
		}
	}
	return true
}

// Apply returns the records of t that satisfy p, in source order.
//
// With no active predicate t is returned unchanged, empty or not. Otherwise a
// pass that keeps nothing returns domain.ErrEmptyResult instead of a
// zero-length table.
func Apply(t domain.Table, p Predicates) (domain.Table, error) {
	if p.Empty() {
		return t, nil
	}

	out := make(domain.Table, 0, len(t))
	for _, r := range t {
		if p.Match(r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrEmptyResult
	}
	return out, nil
}
