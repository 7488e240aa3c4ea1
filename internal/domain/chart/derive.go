package chart

import (
	"fmt"

	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// dxMarkerY is where diagnosis triangles sit, just above the x axis.
const dxMarkerY = 0.02

// modeBarZoomButtons are always removed; zoom and pan are not offered.
var modeBarZoomButtons = []string{
	"zoom2d",
	"zoomIn2d",
	"zoomOut2d",
	"pan2d",
	"select2d",
	"lasso2d",
	"autoScale2d",
}

// Derive builds the chart spec for one record. It only reads rec.
func Derive(rec *patient.Record, opts Options) *Spec {
	spec := &Spec{
		HCN:    rec.HCN,
		Data:   traces(rec, opts),
		Config: interaction(opts),
		Layout: Layout{
			Title:       Title{Text: fmt.Sprintf("FI-Lab Timeline | HCN %s", rec.HCN)},
			Height:      opts.height(),
			HoverMode:   "x unified",
			ShowLegend:  true,
			YAxis:       Axis{Range: []any{0.0, 1.0}, FixedRange: true},
			Shapes:      shapes(rec, opts),
			Annotations: annotations(rec, opts),
		},
	}
	spec.Layout.XAxis = xAxis(rec, opts, spec.Trace(DiagnosisName) != nil)
	if opts.HoverWindow {
		band := LookbackShape(dates.Range{})
		spec.HoverBand = &band
	}
	return spec
}

func traces(rec *patient.Record, opts Options) []Trace {
	fi := rec.FILab

	acute := Trace{
		Type:   "scatter",
		Name:   AcuteName,
		Mode:   "lines+markers",
		X:      fi.Dates,
		Y:      fi.Acute,
		Marker: &Marker{Size: 1},
		Line:   &Line{Width: 2},
	}
	if opts.OpacityByTests {
		acute.Marker = &Marker{Size: 6, Opacity: MarkerOpacities(fi.NumOfTests)}
	}

	chronic := Trace{
		Type:        "scatter",
		Name:        ChronicName,
		Mode:        "markers+lines",
		X:           fi.Dates,
		Y:           fi.Chronic,
		ConnectGaps: true,
		Line:        &Line{Width: 3},
	}
	if opts.HoverWindow {
		years := opts.lookbackYears()
		// An undated point gets no window; the shell skips null customdata.
		chronic.CustomData = make([]*[2]string, len(fi.Dates))
		for i, d := range fi.Dates {
			if !d.Valid() {
				continue
			}
			w := dates.Lookback(d, years)
			chronic.CustomData[i] = &[2]string{w.Start.String(), w.End.String()}
		}
	}

	out := []Trace{acute, chronic}

	if len(rec.DxAnnotations) > 0 {
		dx := Trace{
			Type:          "scatter",
			Name:          DiagnosisName,
			Mode:          "markers",
			X:             make([]dates.Date, 0, len(rec.DxAnnotations)),
			Y:             make([]*float64, 0, len(rec.DxAnnotations)),
			Text:          make([]string, 0, len(rec.DxAnnotations)),
			Marker:        &Marker{Symbol: "triangle-up", Size: 10, Color: "purple"},
			HoverTemplate: "%{x}<br>%{text}<extra></extra>",
		}
		for _, a := range rec.DxAnnotations {
			if !a.Date.Valid() {
				continue
			}
			y := dxMarkerY
			dx.X = append(dx.X, a.Date)
			dx.Y = append(dx.Y, &y)
			dx.Text = append(dx.Text, a.Text)
		}
		if len(dx.X) > 0 {
			out = append(out, dx)
		}
	}
	return out
}

func band(start, end dates.Date, color string, opacity float64, name string) (Shape, bool) {
	if !start.Valid() {
		return Shape{}, false
	}
	if !end.Valid() {
		end = start
	}
	return Shape{
		Type:      "rect",
		XRef:      "x",
		YRef:      "paper",
		X0:        start,
		X1:        end,
		Y0:        0,
		Y1:        1,
		FillColor: color,
		Opacity:   opacity,
		Layer:     "below",
		Line:      Line{Width: 0},
		Name:      name,
	}, true
}

func vline(at dates.Date, line Line, name string) Shape {
	return Shape{
		Type: "line",
		XRef: "x",
		YRef: "paper",
		X0:   at,
		X1:   at,
		Y0:   0,
		Y1:   1,
		Line: line,
		Name: name,
	}
}

// shapes keeps input order: inpatient bands, then ED bands, then event
// lines. Later shapes draw on top.
func shapes(rec *patient.Record, opts Options) []Shape {
	out := make([]Shape, 0, len(rec.InpatientVisits)+len(rec.EDVisits)+2)
	for _, v := range rec.InpatientVisits {
		if s, ok := band(v.Start, v.End, "salmon", 0.25, "inpatient"); ok {
			out = append(out, s)
		}
	}
	for _, v := range rec.EDVisits {
		if s, ok := band(v.Start, v.End, "skyblue", 0.35, "ed"); ok {
			out = append(out, s)
		}
	}
	if ld := rec.DisplayDischarge(); opts.ShowDischarge && ld != nil {
		out = append(out, vline(ld.Date, Line{Color: "black", Dash: "dot", Width: 2}, "discharge"))
	}
	if death := rec.DeathDate(); death.Valid() {
		out = append(out, vline(death, Line{Color: "red", Dash: "dash", Width: 3}, "death"))
	}
	return out
}

func annotations(rec *patient.Record, opts Options) []Annotation {
	out := []Annotation{{
		X:         0,
		Y:         1.14,
		XRef:      "paper",
		YRef:      "paper",
		Text:      fmt.Sprintf("Age: %d  •  Sex: %s", rec.Age, rec.Sex),
		ShowArrow: false,
		Align:     "left",
		XAnchor:   "left",
		Font:      Font{Size: 20, Color: "#222"},
	}}
	if ld := rec.DisplayDischarge(); opts.ShowDischarge && ld != nil {
		out = append(out, Annotation{
			X:           ld.Date,
			Y:           1,
			YRef:        "paper",
			Text:        "Last Discharge: " + ld.Disposition,
			Font:        Font{Size: 11, Color: "black"},
			BgColor:     "rgba(255,255,255,0.85)",
			BorderColor: "black",
			BorderWidth: 1,
			YAnchor:     "bottom",
		})
	}
	if death := rec.DeathDate(); death.Valid() {
		out = append(out, Annotation{
			X:       death,
			Y:       1,
			YRef:    "paper",
			Text:    "Death",
			Font:    Font{Size: 12, Color: "red"},
			YAnchor: "bottom",
		})
	}
	return out
}

func xAxis(rec *patient.Record, opts Options, hasDx bool) Axis {
	ax := Axis{Type: "date"}
	if opts.FixedAxisRange {
		r := XRange(rec, opts)
		ax.Range = []any{r.Start, r.End}
	} else {
		ax.AutoRange = true
	}
	if opts.DxTicks {
		show := hasDx
		ax.ShowTickLabels = &show
		ax.ShowGrid = &show
		if hasDx {
			ax.Ticks = "outside"
		}
	}
	return ax
}

func interaction(opts Options) Interaction {
	remove := append([]string(nil), modeBarZoomButtons...)
	if !opts.ResetButton {
		remove = append(remove, "resetScale2d")
	}
	return Interaction{
		ScrollZoom:             opts.ScrollZoom,
		ModeBarButtonsToRemove: remove,
		DisplayLogo:            false,
		DisplayModeBar:         true,
		StaticPlot:             false,
		Responsive:             true,
	}
}
