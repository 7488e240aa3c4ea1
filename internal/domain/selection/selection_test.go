package selection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/filab/fi-dashboard/internal/domain/chart"
	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

func testRecords() []*patient.Record {
	recs := []*patient.Record{
		{HCN: "A1", Age: 80, Sex: "F"},
		{HCN: "B2", Age: 71, Sex: "M", Death: &patient.Death{Date: dates.MustParse("2023-02-01")}},
		{HCN: "C3", Age: 92, Sex: "F", Death: &patient.Death{}},
	}
	for _, r := range recs {
		r.Normalize()
	}
	return recs
}

type staticRecords []*patient.Record

func (s staticRecords) AllPatients(context.Context) ([]*patient.Record, error) { return s, nil }

func TestInitial(t *testing.T) {
	if got := Initial(testRecords()); got.Selected != "A1" {
		t.Errorf("expected first record selected, got %q", got.Selected)
	}
	if got := Initial(nil); got.Selected != "" {
		t.Errorf("expected no selection, got %q", got.Selected)
	}
}

func TestSelect(t *testing.T) {
	recs := testRecords()
	s, err := Select(Initial(recs), "B2", recs)
	if err != nil || s.Selected != "B2" {
		t.Fatalf("expected B2 selected, got %q (%v)", s.Selected, err)
	}

	s, err = Select(s, "B2", recs)
	if err != nil || s.Selected != "B2" {
		t.Errorf("re-selecting should be a no-op, got %q (%v)", s.Selected, err)
	}
}

func TestSelect_Unknown(t *testing.T) {
	recs := testRecords()
	before := State{Selected: "A1"}
	s, err := Select(before, "ZZ", recs)
	if !errors.Is(err, ErrUnknownPatient) {
		t.Fatalf("expected ErrUnknownPatient, got %v", err)
	}
	if s != before {
		t.Errorf("expected unchanged state, got %+v", s)
	}
}

func TestEntries_DeathIndicator(t *testing.T) {
	entries := Entries(testRecords(), State{Selected: "B2"})
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []struct {
		hcn      string
		deceased bool
		selected bool
	}{
		{"A1", false, false},
		{"B2", true, true},
		{"C3", false, false},
	}
	for i, w := range want {
		e := entries[i]
		if e.HCN != w.hcn || e.Deceased != w.deceased || e.Selected != w.selected {
			t.Errorf("entry %d = %+v, want %+v", i, e, w)
		}
	}
}

func TestHandler_GetDashboard(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantCode     int
		wantSelected string
	}{
		{"initial", "", http.StatusOK, "A1"},
		{"explicit", "?selected=B2", http.StatusOK, "B2"},
		{"unknown", "?selected=ZZ", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(staticRecords(testRecords()), chart.DefaultOptions())
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard"+tt.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := h.GetDashboard(c)
			if tt.wantCode != http.StatusOK {
				var he *echo.HTTPError
				if !errors.As(err, &he) || he.Code != tt.wantCode {
					t.Fatalf("expected %d, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var body Dashboard
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Selected != tt.wantSelected {
				t.Errorf("selected = %q, want %q", body.Selected, tt.wantSelected)
			}
			if body.Chart == nil || body.Chart.HCN != tt.wantSelected {
				t.Errorf("expected chart for %s", tt.wantSelected)
			}
			if len(body.Patients) != 3 {
				t.Errorf("expected 3 entries, got %d", len(body.Patients))
			}
		})
	}
}

func TestHandler_GetDashboard_Empty(t *testing.T) {
	h := NewHandler(staticRecords(nil), chart.DefaultOptions())
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := h.GetDashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body Dashboard
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Chart != nil || body.Selected != "" || len(body.Patients) != 0 {
		t.Errorf("expected empty dashboard, got %+v", body)
	}
}
