// Package predicate turns raw dashboard form fields into filter predicates
// and decides which dashboard buttons are enabled.
package predicate

import (
	"fmt"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/filter"
)

// Build converts form fields into the active predicate set.
//
// Incomplete groups are skipped rather than rejected: five of six time
// subfields, a single date, or a selection without a range simply leave that
// predicate inactive. Only values that are present but outside their small
// enumeration return an error wrapping domain.ErrInvalidField.
func Build(f domain.FormFields) (filter.Predicates, error) {
	var p filter.Predicates

	if f.HasTimeRange() {
		tr, err := buildTimeRange(f.StartTime, f.EndTime)
		if err != nil {
			return filter.Predicates{}, err
		}
		p.Time = tr
	}

	if f.HasDateRange() {
		start, err := domain.ParseDate(*f.StartDate)
		if err != nil {
			return filter.Predicates{}, fmt.Errorf("start date: %w", err)
		}
		end, err := domain.ParseDate(*f.EndDate)
		if err != nil {
			return filter.Predicates{}, fmt.Errorf("end date: %w", err)
		}
		p.Dates = &domain.DateRange{Start: start, End: end}
	}

	if f.HasSelection() {
		p.Box = buildBox(f.Selection.Range)
	}

	return p, nil
}

func buildTimeRange(start, end domain.ClockField) (*domain.TimeRange, error) {
	s, err := domain.ParseClock(*start.Hour, *start.Minute, *start.Period)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	e, err := domain.ParseClock(*end.Hour, *end.Minute, *end.Period)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	return &domain.TimeRange{Start: s, End: e}, nil
}

// buildBox reads the [lon, lat] corner pairs of a box selection.
func buildBox(r *domain.SelectionRange) *domain.BoundingBox {
	tl, br := r.Mapbox[0], r.Mapbox[1]
	return &domain.BoundingBox{
		TopLeft:     domain.GeoPoint{Lon: tl[0], Lat: tl[1]},
		BottomRight: domain.GeoPoint{Lon: br[0], Lat: br[1]},
	}
}

// Controls reports which buttons are enabled. Generate needs any one
// complete predicate group; refine additionally needs a populated working
// set; reset needs only the populated working set.
func Controls(f domain.FormFields, populated bool) domain.Controls {
	anyFilter := f.HasTimeRange() || f.HasDateRange() || f.HasSelection()
	return domain.Controls{
		Generate: anyFilter,
		Refine:   anyFilter && populated,
		Reset:    populated,
	}
}
