package domain

import "strings"

// ClockField is one hour/minute/AM-PM select triple from the sidebar.
// A nil or blank subfield is "not chosen".
type ClockField struct {
	Hour   *string `json:"hour,omitempty"`
	Minute *string `json:"minute,omitempty"`
	Period *string `json:"period,omitempty"`
}

// Complete reports whether all three subfields are chosen.
func (c ClockField) Complete() bool {
	return present(c.Hour) && present(c.Minute) && present(c.Period)
}

// Selection is the map widget's box-select payload. Only the range attribute
// matters; lasso selections arrive without it.
type Selection struct {
	Range *SelectionRange `json:"range,omitempty"`
}

// SelectionRange carries the two corners of a box selection as [lon, lat]
// pairs, top-left first.
type SelectionRange struct {
	Mapbox [][]float64 `json:"mapbox"`
}

// FormFields is the raw state of the sidebar and the map selection.
type FormFields struct {
	StartTime ClockField `json:"start_time"`
	EndTime   ClockField `json:"end_time"`
	StartDate *string    `json:"start_date,omitempty"`
	EndDate   *string    `json:"end_date,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
}

// HasTimeRange reports whether all six time subfields are chosen.
func (f FormFields) HasTimeRange() bool {
	return f.StartTime.Complete() && f.EndTime.Complete()
}

// HasDateRange reports whether both dates are chosen.
func (f FormFields) HasDateRange() bool {
	return present(f.StartDate) && present(f.EndDate)
}

// HasSelection reports whether the selection carries a usable range.
func (f FormFields) HasSelection() bool {
	if f.Selection == nil || f.Selection.Range == nil {
		return false
	}
	corners := f.Selection.Range.Mapbox
	return len(corners) == 2 && len(corners[0]) == 2 && len(corners[1]) == 2
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
