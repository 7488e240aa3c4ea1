package selection

import (
	"errors"

	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// ErrUnknownPatient is returned when a selection names an HCN that is not
// in the loaded collection.
var ErrUnknownPatient = errors.New("unknown patient")

// State is the dashboard's current selection. An empty Selected means no
// patient is shown.
type State struct {
	Selected string `json:"selected"`
}

// Entry is one row of the patient picker.
type Entry struct {
	HCN       string     `json:"hcn"`
	Age       int        `json:"age"`
	Sex       string     `json:"sex"`
	Deceased  bool       `json:"deceased"`
	DeathDate dates.Date `json:"death_date"`
	Selected  bool       `json:"selected"`
}

// Initial selects the first record, or nothing for an empty collection.
func Initial(records []*patient.Record) State {
	if len(records) == 0 {
		return State{}
	}
	return State{Selected: records[0].HCN}
}

// Select replaces the selection. An unknown HCN leaves the state as it was.
func Select(s State, hcn string, records []*patient.Record) (State, error) {
	for _, r := range records {
		if r.HCN == hcn {
			return State{Selected: hcn}, nil
		}
	}
	return s, ErrUnknownPatient
}

// Entries lists every record in input order, marking the selected one.
func Entries(records []*patient.Record, s State) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		sum := patient.Summarize(r)
		out = append(out, Entry{
			HCN:       sum.HCN,
			Age:       sum.Age,
			Sex:       sum.Sex,
			Deceased:  sum.Deceased,
			DeathDate: sum.DeathDate,
			Selected:  r.HCN == s.Selected,
		})
	}
	return out
}
