package chart

import (
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// HoverKind distinguishes pointer-enter from pointer-leave.
type HoverKind string

const (
	Hover   HoverKind = "hover"
	Unhover HoverKind = "unhover"
)

// HoverEvent is what the renderer reports for a pointer move over a point.
type HoverEvent struct {
	Kind   HoverKind  `json:"kind"`
	Series string     `json:"series"`
	X      dates.Date `json:"x"`
	Y      *float64   `json:"y,omitempty"`
}

// HoverState holds the active lookback band, if any.
type HoverState struct {
	Window *dates.Range `json:"window"`
}

// ApplyHover is the hover reducer. Hovering a chronic point at D sets the
// band to [D - years, D]; leaving clears it; hovering any other series keeps
// the current band.
func ApplyHover(s HoverState, ev HoverEvent, years int) HoverState {
	switch ev.Kind {
	case Unhover:
		return HoverState{}
	case Hover:
		if ev.Series != ChronicName || !ev.X.Valid() {
			return s
		}
		if years <= 0 {
			years = 1
		}
		w := dates.Lookback(ev.X, years)
		return HoverState{Window: &w}
	}
	return s
}

// LookbackShape is the band drawn for an active hover window.
func LookbackShape(w dates.Range) Shape {
	return Shape{
		Type:      "rect",
		XRef:      "x",
		YRef:      "paper",
		X0:        w.Start,
		X1:        w.End,
		Y0:        0,
		Y1:        1,
		FillColor: "mediumseagreen",
		Opacity:   0.15,
		Layer:     "below",
		Line:      Line{Width: 0},
		Name:      "lookback",
	}
}
