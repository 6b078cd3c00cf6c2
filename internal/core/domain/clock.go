package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed in seconds since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from 24-hour components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ClockOf returns the time-of-day of t in t's own location.
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s)
}

// ParseClock converts a 12-hour (hour, minute, AM/PM) triple into a TimeOfDay.
// hour must be 01-12 and minute 00-59; 12 AM is midnight and 12 PM is noon.
func ParseClock(hour, minute, period string) (TimeOfDay, error) {
	h, err := strconv.Atoi(strings.TrimSpace(hour))
	if err != nil || h < 1 || h > 12 {
		return 0, fmt.Errorf("%w: hour %q", ErrInvalidField, hour)
	}
	m, err := strconv.Atoi(strings.TrimSpace(minute))
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute %q", ErrInvalidField, minute)
	}

	switch strings.ToUpper(strings.TrimSpace(period)) {
	case "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h != 12 {
			h += 12
		}
	default:
		return 0, fmt.Errorf("%w: period %q", ErrInvalidField, period)
	}

	return NewTimeOfDay(h, m, 0), nil
}

// String formats the value as HH:MM:SS.
func (d TimeOfDay) String() string {
	s := int(d)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// TimeRange selects records by time-of-day; both ends are inclusive and the
// date component is ignored.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t's time-of-day lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	c := ClockOf(t)
	return c >= r.Start && c <= r.End
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidField, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	a := d.Year*10000 + int(d.Month)*100 + d.Day
	b := other.Year*10000 + int(other.Month)*100 + other.Day
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DateRange selects records by calendar date, both ends inclusive.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether t falls on a date inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return d.Compare(r.Start) >= 0 && d.Compare(r.End) <= 0
}
