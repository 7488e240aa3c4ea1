package chart

import (
	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// XRange computes the fixed x-axis bounds for a record:
// [min(floor, earliest event), latest event]. A record without any dated
// event gets [floor, floor + 1 year]; a single-day span is widened to one
// month so the axis never collapses.
func XRange(rec *patient.Record, opts Options) dates.Range {
	floor := opts.floor()
	events := rec.EventDates(opts.ShowDischarge)

	lo, ok := dates.MinDate(events...)
	if !ok {
		return dates.Range{Start: floor, End: dates.YearsAfter(floor, 1)}
	}
	hi, _ := dates.MaxDate(events...)
	if floor.Before(lo) {
		lo = floor
	}
	if !hi.After(lo) {
		hi = dates.MonthsAfter(lo, 1)
	}
	return dates.Range{Start: lo, End: hi}
}
