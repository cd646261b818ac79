package testkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// Export describes a synthetic experiment export
type Export struct {
	ControlRate   float64
	TreatmentRate float64
	ControlSize   int
	TreatmentSize int
	Start         time.Time
	Days          int
	Seed          uint64
}

// DefaultExport is two weeks of a 10% vs 12% conversion experiment
func DefaultExport() Export {
	return Export{
		ControlRate:   0.10,
		TreatmentRate: 0.12,
		ControlSize:   5000,
		TreatmentSize: 5000,
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:          14,
		Seed:          42,
	}
}

// Rows renders the export as group, submitted, date records with a header
func (e Export) Rows() [][]string {
	g := NewGenerator(e.Seed)
	days := max(e.Days, 1)

	rows := make([][]string, 0, e.ControlSize+e.TreatmentSize+1)
	rows = append(rows, []string{"group", "submitted", "date"})
	emit := func(group string, outcomes []float64) {
		for _, v := range outcomes {
			day := e.Start.AddDate(0, 0, g.Uniform(days))
			rows = append(rows, []string{group, strconv.Itoa(int(v)), day.Format("2006-01-02")})
		}
	}
	emit("0", g.Bernoulli(e.ControlRate, e.ControlSize))
	emit("1", g.Bernoulli(e.TreatmentRate, e.TreatmentSize))
	return rows
}

// CSV encodes the export as CSV text
func (e Export) CSV() ([]byte, error) {
	return EncodeCSV(e.Rows())
}

// XLSX encodes the export as a single-sheet workbook
func (e Export) XLSX() ([]byte, error) {
	return EncodeXLSX(e.Rows())
}

// EncodeCSV writes rows as CSV
func EncodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeXLSX writes rows to Sheet1 of a new workbook
func EncodeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheet1", cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
