package chart

import (
	"fmt"
	"io"
	"sort"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// PNGWidth is the pixel width of server-rendered snapshots.
const PNGWidth = 1100

var (
	acuteColor     = drawing.ColorFromHex("1f77b4")
	chronicColor   = drawing.ColorFromHex("ff7f0e")
	inpatientColor = drawing.ColorFromHex("fa8072")
	edColor        = drawing.ColorFromHex("87ceeb")
	dxColor        = drawing.ColorFromHex("800080")
)

// RenderPNG draws a static snapshot of the same timeline Derive describes.
// Interactive features (hover band, zoom) have no static equivalent.
func RenderPNG(w io.Writer, rec *patient.Record, opts Options) error {
	xr := XRange(rec, opts)
	var series []gochart.Series

	series = append(series, bandSeries("Inpatient", inpatientSpans(rec), inpatientColor.WithAlpha(64))...)
	series = append(series, bandSeries("ED", edSpans(rec), edColor.WithAlpha(90))...)

	if s, ok := scoreSeries(AcuteName, rec.FILab.Dates, rec.FILab.Acute, acuteColor, 2); ok {
		if opts.OpacityByTests {
			alphas := pointAlphas(rec.FILab)
			s.Style.DotWidth = 3
			s.Style.DotColorProvider = func(_, _ gochart.Range, index int, _, _ float64) drawing.Color {
				if index < len(alphas) {
					return acuteColor.WithAlpha(alphas[index])
				}
				return acuteColor
			}
		}
		series = append(series, s)
	}
	if s, ok := scoreSeries(ChronicName, rec.FILab.Dates, rec.FILab.Chronic, chronicColor, 3); ok {
		series = append(series, s)
	}

	if ld := rec.DisplayDischarge(); opts.ShowDischarge && ld != nil {
		series = append(series, vlineSeries("Last Discharge: "+ld.Disposition, ld.Date, drawing.ColorBlack, 2, []float64{2, 3}))
	}
	if death := rec.DeathDate(); death.Valid() {
		series = append(series, vlineSeries("Death", death, drawing.ColorRed, 3, []float64{8, 4}))
	}

	hasDx := false
	if ann := dxAnnotations(rec); len(ann) > 0 {
		hasDx = true
		series = append(series, gochart.AnnotationSeries{
			Name:        DiagnosisName,
			Style:       gochart.Style{StrokeColor: dxColor, FontColor: dxColor},
			Annotations: ann,
		})
	}

	// go-chart refuses to render without a visible series, and hidden ones
	// do not count. The anchor is visible but fully transparent.
	anchored := len(series) == 0
	if anchored {
		series = append(series, gochart.TimeSeries{
			Style: gochart.Style{
				StrokeColor: drawing.ColorTransparent,
				FillColor:   drawing.ColorTransparent,
				DotWidth:    0,
			},
			XValues: []time.Time{xr.Start.Time, xr.End.Time},
			YValues: []float64{0, 0},
		})
	}

	xAxis := gochart.XAxis{
		ValueFormatter: gochart.TimeDateValueFormatter,
		Range: &gochart.ContinuousRange{
			Min: float64(gochart.TimeToFloat64(xr.Start.Time)),
			Max: float64(gochart.TimeToFloat64(xr.End.Time)),
		},
	}
	if opts.DxTicks && !hasDx {
		xAxis.Style.Hidden = true
	}

	graph := gochart.Chart{
		Title:      fmt.Sprintf("FI-Lab Timeline | HCN %s", rec.HCN),
		Width:      PNGWidth,
		Height:     opts.height(),
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	if !anchored {
		graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	}

	return graph.Render(gochart.PNG, w)
}

type span struct{ start, end dates.Date }

func inpatientSpans(rec *patient.Record) []span {
	out := make([]span, 0, len(rec.InpatientVisits))
	for _, v := range rec.InpatientVisits {
		out = appendSpan(out, v.Start, v.End)
	}
	return out
}

func edSpans(rec *patient.Record) []span {
	out := make([]span, 0, len(rec.EDVisits))
	for _, v := range rec.EDVisits {
		out = appendSpan(out, v.Start, v.End)
	}
	return out
}

func appendSpan(out []span, start, end dates.Date) []span {
	if !start.Valid() {
		return out
	}
	if !end.Valid() || !end.After(start) {
		// one-day stays still get a visible sliver
		end = dates.FromTime(start.AddDate(0, 0, 1))
	}
	return append(out, span{start, end})
}

// bandSeries folds all spans of one kind into a single filled outline so
// they share one legend entry. Overlapping spans are merged first.
func bandSeries(name string, spans []span, fill drawing.Color) []gochart.Series {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })
	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if !s.start.After(last.end) {
			if s.end.After(last.end) {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}

	xs := make([]time.Time, 0, 4*len(merged))
	ys := make([]float64, 0, 4*len(merged))
	for _, s := range merged {
		xs = append(xs, s.start.Time, s.start.Time, s.end.Time, s.end.Time)
		ys = append(ys, 0, 1, 1, 0)
	}
	return []gochart.Series{gochart.TimeSeries{
		Name:    name,
		Style:   gochart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 0},
		XValues: xs,
		YValues: ys,
	}}
}

func scoreSeries(name string, ds []dates.Date, vals []*float64, color drawing.Color, width float64) (gochart.TimeSeries, bool) {
	xs := make([]time.Time, 0, len(ds))
	ys := make([]float64, 0, len(ds))
	for i, d := range ds {
		if i >= len(vals) || vals[i] == nil || !d.Valid() {
			continue
		}
		xs = append(xs, d.Time)
		ys = append(ys, *vals[i])
	}
	if len(xs) == 0 {
		return gochart.TimeSeries{}, false
	}
	return gochart.TimeSeries{
		Name:    name,
		Style:   gochart.Style{StrokeColor: color, StrokeWidth: width, DotColor: color, DotWidth: 2},
		XValues: xs,
		YValues: ys,
	}, true
}

// pointAlphas lines up with the points scoreSeries keeps for the acute series.
func pointAlphas(fi patient.FILab) []uint8 {
	out := make([]uint8, 0, len(fi.Dates))
	for i, d := range fi.Dates {
		if i >= len(fi.Acute) || fi.Acute[i] == nil || !d.Valid() {
			continue
		}
		n := 0
		if i < len(fi.NumOfTests) {
			n = fi.NumOfTests[i]
		}
		out = append(out, uint8(MarkerOpacity(n)*255))
	}
	return out
}

func vlineSeries(name string, at dates.Date, color drawing.Color, width float64, dash []float64) gochart.TimeSeries {
	return gochart.TimeSeries{
		Name:    name,
		Style:   gochart.Style{StrokeColor: color, StrokeWidth: width, StrokeDashArray: dash},
		XValues: []time.Time{at.Time, at.Time},
		YValues: []float64{0, 1},
	}
}

func dxAnnotations(rec *patient.Record) []gochart.Value2 {
	out := make([]gochart.Value2, 0, len(rec.DxAnnotations))
	for _, a := range rec.DxAnnotations {
		if !a.Date.Valid() {
			continue
		}
		out = append(out, gochart.Value2{
			XValue: float64(gochart.TimeToFloat64(a.Date.Time)),
			YValue: dxMarkerY,
			Label:  a.Text,
		})
	}
	return out
}
