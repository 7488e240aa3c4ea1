package chart

import (
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// Series names as they appear in the legend and in hover events.
const (
	AcuteName     = "FI Lab Acute"
	ChronicName   = "FI Lab Chronic"
	DiagnosisName = "Diagnosis"
)

// Spec is the complete, renderer-agnostic description of one patient chart.
// It serialises to the data/layout/config triple the browser plotting
// library consumes.
type Spec struct {
	HCN       string      `json:"hcn"`
	Data      []Trace     `json:"data"`
	Layout    Layout      `json:"layout"`
	Config    Interaction `json:"config"`
	HoverBand *Shape      `json:"hover_band,omitempty"`
}

// Trace is one plotted series.
type Trace struct {
	Type          string       `json:"type"`
	Name          string       `json:"name"`
	Mode          string       `json:"mode"`
	X             []dates.Date `json:"x"`
	Y             []*float64   `json:"y"`
	Marker        *Marker      `json:"marker,omitempty"`
	Line          *Line        `json:"line,omitempty"`
	ConnectGaps   bool         `json:"connectgaps,omitempty"`
	Text          []string     `json:"text,omitempty"`
	HoverTemplate string       `json:"hovertemplate,omitempty"`
	CustomData    []*[2]string `json:"customdata,omitempty"`
}

// Marker styles trace points. Opacity is either a single number or one value
// per point.
type Marker struct {
	Size    float64 `json:"size,omitempty"`
	Symbol  string  `json:"symbol,omitempty"`
	Color   string  `json:"color,omitempty"`
	Opacity any     `json:"opacity,omitempty"`
}

// Line styles trace lines and shape outlines. Width is always written because
// zero means "no outline" for shapes.
type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width"`
	Dash  string  `json:"dash,omitempty"`
}

// Shape is a rectangle or line anchored to dates on x and to the plot area
// on y.
type Shape struct {
	Type      string     `json:"type"`
	XRef      string     `json:"xref"`
	YRef      string     `json:"yref"`
	X0        dates.Date `json:"x0"`
	X1        dates.Date `json:"x1"`
	Y0        float64    `json:"y0"`
	Y1        float64    `json:"y1"`
	FillColor string     `json:"fillcolor,omitempty"`
	Opacity   float64    `json:"opacity,omitempty"`
	Layer     string     `json:"layer,omitempty"`
	Line      Line       `json:"line"`
	Name      string     `json:"name,omitempty"`
}

// Annotation is a positioned text label. X is a date for event labels and a
// paper fraction for the header.
type Annotation struct {
	X           any     `json:"x"`
	Y           float64 `json:"y"`
	XRef        string  `json:"xref,omitempty"`
	YRef        string  `json:"yref,omitempty"`
	Text        string  `json:"text"`
	ShowArrow   bool    `json:"showarrow"`
	Align       string  `json:"align,omitempty"`
	XAnchor     string  `json:"xanchor,omitempty"`
	YAnchor     string  `json:"yanchor,omitempty"`
	Font        Font    `json:"font"`
	BgColor     string  `json:"bgcolor,omitempty"`
	BorderColor string  `json:"bordercolor,omitempty"`
	BorderWidth float64 `json:"borderwidth,omitempty"`
}

type Font struct {
	Size  float64 `json:"size,omitempty"`
	Color string  `json:"color,omitempty"`
}

type Title struct {
	Text string `json:"text"`
}

// Axis configures one axis. Range is written only when fixed; AutoRange is
// set otherwise.
type Axis struct {
	Type           string `json:"type,omitempty"`
	Range          []any  `json:"range,omitempty"`
	AutoRange      bool   `json:"autorange,omitempty"`
	ShowTickLabels *bool  `json:"showticklabels,omitempty"`
	ShowGrid       *bool  `json:"showgrid,omitempty"`
	Ticks          string `json:"ticks,omitempty"`
	FixedRange     bool   `json:"fixedrange,omitempty"`
}

type Layout struct {
	Title       Title        `json:"title"`
	Height      int          `json:"height"`
	HoverMode   string       `json:"hovermode"`
	ShowLegend  bool         `json:"showlegend"`
	XAxis       Axis         `json:"xaxis"`
	YAxis       Axis         `json:"yaxis"`
	Shapes      []Shape      `json:"shapes"`
	Annotations []Annotation `json:"annotations"`
}

// Interaction is the toolbar and zoom policy handed to the renderer.
type Interaction struct {
	ScrollZoom             bool     `json:"scrollZoom"`
	ModeBarButtonsToRemove []string `json:"modeBarButtonsToRemove"`
	DisplayLogo            bool     `json:"displaylogo"`
	DisplayModeBar         bool     `json:"displayModeBar"`
	StaticPlot             bool     `json:"staticPlot"`
	Responsive             bool     `json:"responsive"`
}

// XRange returns the fixed x-axis bounds, if any.
func (s *Spec) XRange() (dates.Range, bool) {
	if len(s.Layout.XAxis.Range) != 2 {
		return dates.Range{}, false
	}
	lo, ok1 := s.Layout.XAxis.Range[0].(dates.Date)
	hi, ok2 := s.Layout.XAxis.Range[1].(dates.Date)
	if !ok1 || !ok2 {
		return dates.Range{}, false
	}
	return dates.Range{Start: lo, End: hi}, true
}

// Trace returns the named trace, or nil.
func (s *Spec) Trace(name string) *Trace {
	for i := range s.Data {
		if s.Data[i].Name == name {
			return &s.Data[i]
		}
	}
	return nil
}

// ShapesNamed returns the shapes carrying name.
func (s *Spec) ShapesNamed(name string) []Shape {
	var out []Shape
	for _, sh := range s.Layout.Shapes {
		if sh.Name == name {
			out = append(out, sh)
		}
	}
	return out
}
