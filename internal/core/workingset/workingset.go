// Package workingset implements the generate/refine/reset transitions of a
// dashboard working set. Every function takes the current value and returns
// the next one; nothing here holds state.
package workingset

import (
	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/filter"
)

// Generate filters the base dataset and makes the result both the current
// table and the new baseline. It is valid from any state. On error (including
// domain.ErrEmptyResult) ws is returned unchanged.
func Generate(ws domain.WorkingSet, base domain.Table, p filter.Predicates) (domain.WorkingSet, error) {
	result, err := filter.Apply(base, p)
	if err != nil {
		return ws, err
	}
	return domain.WorkingSet{
		Current:   result,
		Baseline:  result,
		Populated: true,
	}, nil
}

// Refine filters the current table further, leaving the baseline alone.
func Refine(ws domain.WorkingSet, p filter.Predicates) (domain.WorkingSet, error) {
	if !ws.Populated {
		return ws, domain.ErrMissingBaseline
	}
	result, err := filter.Apply(ws.Current, p)
	if err != nil {
		return ws, err
	}
	return domain.WorkingSet{
		Current:   result,
		Baseline:  ws.Baseline,
		Populated: true,
		Refined:   true,
	}, nil
}

// Reset undoes refinements first: a refined set goes back to its baseline,
// and an unrefined one is cleared to absent.
//
// "Refined" is the flag set by a successful Refine, not a comparison of
// Current with Baseline. A refine that kept every row still counts, so the
// first Reset after it restores the (identical) baseline and only the
// second one clears the set.
func Reset(ws domain.WorkingSet) (domain.WorkingSet, error) {
	if !ws.Populated {
		return ws, domain.ErrMissingBaseline
	}
	if ws.Refined {
		return domain.WorkingSet{
			Current:   ws.Baseline,
			Baseline:  ws.Baseline,
			Populated: true,
		}, nil
	}
	return domain.WorkingSet{}, nil
}
