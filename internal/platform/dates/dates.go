// Package dates holds the calendar-date type used throughout the patient
// fixture and the small set of date helpers the chart derivation needs.
// A zero Date means "absent"; every helper here skips absent values so they
// never reach an axis bound.
package dates

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical wire format for a Date.
const Layout = "2006-01-02"

// accepted lists the input layouts Parse understands, most specific first.
var accepted = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	Layout,
	"2006-01",
	"2006",
}

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// New returns the Date for the given calendar day.
func New(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day in UTC.
func FromTime(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.UTC().Date()
	return New(y, m, d)
}

// Parse reads a date in any accepted layout. Empty input yields the zero Date
// and no error.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return Date{}, nil
	}
	for _, layout := range accepted {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// MustParse is Parse for literals in tests and constants.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Valid reports whether the date is present.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format(Layout)
}

// UnmarshalJSON accepts a string in any accepted layout or null. Unparseable
// strings decode to the zero Date instead of failing the whole document.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// MarshalJSON writes YYYY-MM-DD, or null when absent.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether both dates are the same day.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// YearsBefore subtracts n calendar years. Feb 29 maps to Feb 28 in a non-leap
// target year rather than rolling into March.
func YearsBefore(d Date, n int) Date {
	return YearsAfter(d, -n)
}

// YearsAfter adds n calendar years, clamping the day to the target month.
func YearsAfter(d Date, n int) Date {
	if !d.Valid() {
		return Date{}
	}
	y, m, day := d.Date()
	y += n
	if last := daysIn(y, m); day > last {
		day = last
	}
	return New(y, m, day)
}

// MonthsAfter adds n calendar months, clamping the day to the target month.
func MonthsAfter(d Date, n int) Date {
	if !d.Valid() {
		return Date{}
	}
	y, m, day := d.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return New(first.Year(), first.Month(), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MinDate returns the earliest present date and false when none is present.
func MinDate(ds ...Date) (Date, bool) {
	var out Date
	found := false
	for _, d := range ds {
		if !d.Valid() {
			continue
		}
		if !found || d.Before(out) {
			out = d
			found = true
		}
	}
	return out, found
}

// MaxDate returns the latest present date and false when none is present.
func MaxDate(ds ...Date) (Date, bool) {
	var out Date
	found := false
	for _, d := range ds {
		if !d.Valid() {
			continue
		}
		if !found || d.After(out) {
			out = d
			found = true
		}
	}
	return out, found
}

// Range is a closed interval of days.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Valid reports whether both ends are present and ordered.
func (r Range) Valid() bool {
	return r.Start.Valid() && r.End.Valid() && !r.End.Before(r.Start)
}

// Contains reports whether d falls inside the range, ends included.
func (r Range) Contains(d Date) bool {
	return r.Valid() && d.Valid() && !d.Before(r.Start) && !d.After(r.End)
}

// Lookback returns the window [d - years, d].
func Lookback(d Date, years int) Range {
	if !d.Valid() {
		return Range{}
	}
	return Range{Start: YearsBefore(d, years), End: d}
}
