package chart

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// Sheet names of the workbook produced by ExportXLSX.
const (
	PatientSheet = "Patient"
	SeriesSheet  = "FI Lab"
	EventsSheet  = "Events"
)

var (
	seriesHeaders = []string{"Date", "Acute", "Chronic", "Tests", "Acute Marker Opacity"}
	eventsHeaders = []string{"Type", "Start", "End", "Detail"}
)

// ExportXLSX writes the data behind one patient's chart as a workbook: a
// summary sheet, the FI-Lab series and every dated event.
func ExportXLSX(rec *patient.Record, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(PatientSheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet %s: %w", PatientSheet, err)
	}
	for _, name := range []string{SeriesSheet, EventsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := writePatientSheet(f, rec, headerStyle); err != nil {
		return nil, err
	}
	if err := writeTable(f, SeriesSheet, seriesHeaders, seriesRows(rec), headerStyle); err != nil {
		return nil, err
	}
	if err := writeTable(f, EventsSheet, eventsHeaders, eventRows(rec, opts), headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writePatientSheet(f *excelize.File, rec *patient.Record, headerStyle int) error {
	deceased := "No"
	if rec.Deceased() {
		deceased = "Yes"
	}
	rows := [][]any{
		{"HCN", rec.HCN},
		{"Age", rec.Age},
		{"Sex", rec.Sex},
		{"Deceased", deceased},
		{"Death Date", dateCell(rec.DeathDate())},
	}
	if ld := rec.LastDischarge; ld != nil {
		rows = append(rows,
			[]any{"Last Discharge", dateCell(ld.Date)},
			[]any{"Disposition", ld.Disposition},
		)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(PatientSheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", PatientSheet, i+1, err)
		}
		if err := f.SetCellStyle(PatientSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(PatientSheet, "A", "B", 18)
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing %s header %s: %w", sheet, cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func seriesRows(rec *patient.Record) [][]any {
	fi := rec.FILab
	rows := make([][]any, 0, fi.Len())
	for i := 0; i < fi.Len(); i++ {
		rows = append(rows, []any{
			dateCell(fi.Dates[i]),
			scoreCell(fi.Acute[i]),
			scoreCell(fi.Chronic[i]),
			fi.NumOfTests[i],
			MarkerOpacity(fi.NumOfTests[i]),
		})
	}
	return rows
}

// eventRows lists events in the order the chart draws them.
func eventRows(rec *patient.Record, opts Options) [][]any {
	var rows [][]any
	for _, v := range rec.InpatientVisits {
		rows = append(rows, []any{"Inpatient", dateCell(v.Start), dateCell(v.End), v.Disposition})
	}
	for _, v := range rec.EDVisits {
		rows = append(rows, []any{"ED", dateCell(v.Start), dateCell(v.End), ""})
	}
	for _, a := range rec.DxAnnotations {
		rows = append(rows, []any{DiagnosisName, dateCell(a.Date), "", a.Text})
	}
	if ld := rec.DisplayDischarge(); opts.ShowDischarge && ld != nil {
		rows = append(rows, []any{"Last Discharge", dateCell(ld.Date), "", ld.Disposition})
	}
	if death := rec.DeathDate(); death.Valid() {
		rows = append(rows, []any{"Death", dateCell(death), "", ""})
	}
	return rows
}

func dateCell(d dates.Date) any {
	if !d.Valid() {
		return nil
	}
	return d.String()
}

func scoreCell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
