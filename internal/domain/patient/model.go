package patient

import (
	"fmt"

	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// Record is one patient in the FI-Lab fixture, keyed by health-card number.
type Record struct {
	HCN             string           `json:"hcn"`
	Age             int              `json:"age"`
	Sex             string           `json:"sex"`
	Death           *Death           `json:"death,omitempty"`
	LastDischarge   *LastDischarge   `json:"last_discharge,omitempty"`
	FILab           FILab            `json:"fi_lab"`
	InpatientVisits []InpatientVisit `json:"inpatient_visits"`
	EDVisits        []EDVisit        `json:"ed_visits"`
	DxAnnotations   []DxAnnotation   `json:"dx_annotations"`
}

// Death holds the date of death when known.
type Death struct {
	Date dates.Date `json:"date"`
}

// LastDischarge is the most recent inpatient discharge. DeathFromDAD marks a
// discharge row that was derived from the death record itself.
type LastDischarge struct {
	Date         dates.Date `json:"date"`
	Disposition  string     `json:"disposition"`
	DeathFromDAD bool       `json:"death_from_dad"`
}

// FILab is the lab-derived frailty index series. All four slices are index
// aligned; Acute and Chronic entries may be nil where no score was computed.
type FILab struct {
	Dates      []dates.Date `json:"dates"`
	Acute      []*float64   `json:"acute"`
	Chronic    []*float64   `json:"chronic"`
	NumOfTests []int        `json:"num_of_tests"`
}

// Len returns the number of aligned points.
func (f FILab) Len() int { return len(f.Dates) }

// InpatientVisit is a hospital stay.
type InpatientVisit struct {
	Start       dates.Date `json:"start"`
	End         dates.Date `json:"end"`
	Disposition string     `json:"disposition,omitempty"`
}

// EDVisit is an emergency-department visit.
type EDVisit struct {
	Start dates.Date `json:"start"`
	End   dates.Date `json:"end"`
}

// DxAnnotation is a dated diagnosis label.
type DxAnnotation struct {
	Date dates.Date `json:"date"`
	Text string     `json:"text"`
}

// DeathDate returns the date of death, or the zero Date.
func (r *Record) DeathDate() dates.Date {
	if r.Death == nil {
		return dates.Date{}
	}
	return r.Death.Date
}

// Deceased reports whether a date of death is recorded.
func (r *Record) Deceased() bool {
	return r.DeathDate().Valid()
}

// DisplayDischarge returns the last discharge when it is a real discharge and
// not a second rendering of the death event: rows flagged as death-derived
// and rows dated on or after the death date are dropped.
func (r *Record) DisplayDischarge() *LastDischarge {
	ld := r.LastDischarge
	if ld == nil || ld.DeathFromDAD || !ld.Date.Valid() {
		return nil
	}
	if death := r.DeathDate(); death.Valid() && !ld.Date.Before(death) {
		return nil
	}
	return ld
}

// EventDates returns every date carried by the record: FI dates, visit
// bounds, diagnosis dates, death and, when withDischarge is set, the
// displayable discharge.
func (r *Record) EventDates(withDischarge bool) []dates.Date {
	out := make([]dates.Date, 0, len(r.FILab.Dates)+2*len(r.InpatientVisits)+2*len(r.EDVisits)+len(r.DxAnnotations)+2)
	out = append(out, r.FILab.Dates...)
	for _, v := range r.InpatientVisits {
		out = append(out, v.Start, v.End)
	}
	for _, v := range r.EDVisits {
		out = append(out, v.Start, v.End)
	}
	for _, dx := range r.DxAnnotations {
		out = append(out, dx.Date)
	}
	out = append(out, r.DeathDate())
	if ld := r.DisplayDischarge(); withDischarge && ld != nil {
		out = append(out, ld.Date)
	}
	return out
}

// Issue describes one invariant violation repaired by Normalize.
type Issue struct {
	HCN     string `json:"hcn"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.HCN, i.Field, i.Message)
}

// Normalize repairs shape problems in place and reports what it changed.
// Absent collections become empty, FI series are truncated to their shortest
// member, scores are clamped to [0,1] and inverted visits are dropped.
func (r *Record) Normalize() []Issue {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{HCN: r.HCN, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	f := &r.FILab
	n := minLen(len(f.Dates), len(f.Acute), len(f.Chronic), len(f.NumOfTests))
	if n != len(f.Dates) || n != len(f.Acute) || n != len(f.Chronic) || n != len(f.NumOfTests) {
		add("fi_lab", "series lengths differ (dates=%d acute=%d chronic=%d num_of_tests=%d), truncated to %d",
			len(f.Dates), len(f.Acute), len(f.Chronic), len(f.NumOfTests), n)
	}
	f.Dates = nonNil(f.Dates[:n])
	f.Acute = nonNil(f.Acute[:n])
	f.Chronic = nonNil(f.Chronic[:n])
	f.NumOfTests = nonNil(f.NumOfTests[:n])

	for i := 0; i < n; i++ {
		if clampScore(f.Acute[i]) {
			add("fi_lab.acute", "score at %s outside [0,1], clamped", f.Dates[i])
		}
		if clampScore(f.Chronic[i]) {
			add("fi_lab.chronic", "score at %s outside [0,1], clamped", f.Dates[i])
		}
	}

	inpatient := make([]InpatientVisit, 0, len(r.InpatientVisits))
	for _, v := range r.InpatientVisits {
		if v.Start.Valid() && v.End.Valid() && v.End.Before(v.Start) {
			add("inpatient_visits", "visit %s..%s ends before it starts, dropped", v.Start, v.End)
			continue
		}
		inpatient = append(inpatient, v)
	}
	r.InpatientVisits = inpatient

	ed := make([]EDVisit, 0, len(r.EDVisits))
	for _, v := range r.EDVisits {
		if v.Start.Valid() && v.End.Valid() && v.End.Before(v.Start) {
			add("ed_visits", "visit %s..%s ends before it starts, dropped", v.Start, v.End)
			continue
		}
		ed = append(ed, v)
	}
	r.EDVisits = ed

	if r.DxAnnotations == nil {
		r.DxAnnotations = []DxAnnotation{}
	}
	return issues
}

func minLen(ns ...int) int {
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func clampScore(v *float64) bool {
	if v == nil {
		return false
	}
	switch {
	case *v < 0:
		*v = 0
		return true
	case *v > 1:
		*v = 1
		return true
	}
	return false
}
