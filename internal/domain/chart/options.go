package chart

import (
	"time"

	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// DefaultAxisFloor is the earliest lower x bound used when every event is
// later than it.
var DefaultAxisFloor = dates.New(2020, time.January, 1)

// Options selects the chart behaviours that differed between dashboard
// revisions. The zero value is the earliest revision; DefaultOptions is the
// current one.
type Options struct {
	// AxisFloor caps the lower x bound: the axis starts at the earlier of
	// the floor and the first event.
	AxisFloor dates.Date
	// FixedAxisRange pins the x axis to the event span instead of letting
	// the renderer autoscale.
	FixedAxisRange bool
	// ShowDischarge draws the last non-death discharge.
	ShowDischarge bool
	// DxTicks hides x tick labels and gridlines unless diagnosis markers are
	// present.
	DxTicks bool
	// OpacityByTests fades acute markers backed by few lab tests.
	OpacityByTests bool
	// HoverWindow attaches a lookback band to every chronic point.
	HoverWindow bool
	// LookbackYears is the width of the hover band.
	LookbackYears int
	ScrollZoom    bool
	ResetButton   bool
	Height        int
}

// DefaultOptions returns the behaviour of the latest dashboard revision.
func DefaultOptions() Options {
	return Options{
		AxisFloor:      DefaultAxisFloor,
		FixedAxisRange: true,
		ShowDischarge:  true,
		DxTicks:        true,
		OpacityByTests: true,
		HoverWindow:    true,
		LookbackYears:  1,
		ScrollZoom:     true,
		ResetButton:    true,
		Height:         480,
	}
}

func (o Options) floor() dates.Date {
	if o.AxisFloor.Valid() {
		return o.AxisFloor
	}
	return DefaultAxisFloor
}

func (o Options) lookbackYears() int {
	if o.LookbackYears > 0 {
		return o.LookbackYears
	}
	return 1
}

func (o Options) height() int {
	if o.Height > 0 {
		return o.Height
	}
	return 480
}
