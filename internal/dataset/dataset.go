// Package dataset loads experiment exports (one row per user with a group
// assignment, an outcome and optionally a date) and reshapes them for the
// inference and validation engines.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cast"

	"goabtest/domain/core"
	"goabtest/internal/errors"
)

// Schema names the columns and group labels of a dataset
type Schema struct {
	GroupColumn    string `mapstructure:"group_column" json:"group_column"`
	OutcomeColumn  string `mapstructure:"outcome_column" json:"outcome_column"`
	DateColumn     string `mapstructure:"date_column" json:"date_column"`
	ControlValue   string `mapstructure:"control_value" json:"control_value"`
	TreatmentValue string `mapstructure:"treatment_value" json:"treatment_value"`
}

// DefaultSchema matches the standard export: group 0/1, submitted outcome, date
func DefaultSchema() Schema {
	return Schema{
		GroupColumn:    "group",
		OutcomeColumn:  "submitted",
		DateColumn:     "date",
		ControlValue:   "0",
		TreatmentValue: "1",
	}
}

// Arm is the side of the experiment an observation belongs to
type Arm int

const (
	Control Arm = iota
	Treatment
)

func (a Arm) String() string {
	if a == Treatment {
		return "treatment"
	}
	return "control"
}

// Observation is one coerced row
type Observation struct {
	Arm     Arm
	Outcome float64
	Date    time.Time // zero when the dataset has no date column or the cell is blank
}

// Dataset is a coerced experiment export
type Dataset struct {
	Schema       Schema
	Observations []Observation
	Hash         core.Hash
	HasDates     bool
}

// Load reads a CSV or XLSX file chosen by extension
func Load(ctx context.Context, path string, schema Schema) (*Dataset, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%s file not found: %s", strings.ToUpper(string(format)), path))
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return Read(ctx, bytes.NewReader(raw), format, schema)
}

// Read parses and coerces a dataset from r
func Read(ctx context.Context, r io.Reader, format Format, schema Schema) (*Dataset, error) {
	table, err := ReadTable(ctx, r, format)
	if err != nil {
		return nil, err
	}
	return FromTable(table, schema)
}

// FromTable coerces raw cells: group labels against the schema, outcomes to
// numbers (booleans count as 0/1) and dates in any common layout.
func FromTable(table *Table, schema Schema) (*Dataset, error) {
	for _, col := range []string{schema.GroupColumn, schema.OutcomeColumn} {
		if !table.HasColumn(col) {
			return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %q", core.ErrMissingColumn, col))
		}
	}
	hasDates := schema.DateColumn != "" && table.HasColumn(schema.DateColumn)

	ds := &Dataset{
		Schema:       schema,
		Observations: make([]Observation, 0, len(table.Rows)),
		Hash:         table.Hash,
		HasDates:     hasDates,
	}
	for i, row := range table.Rows {
		line := i + 2 // header is line 1

		arm, err := schema.arm(row[schema.GroupColumn])
		if err != nil {
			return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("row %d: %w", line, err))
		}
		outcome, err := coerceOutcome(row[schema.OutcomeColumn])
		if err != nil {
			return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("row %d: %w", line, err))
		}
		obs := Observation{Arm: arm, Outcome: outcome}
		if hasDates && row[schema.DateColumn] != "" {
			obs.Date, err = cast.ToTimeE(row[schema.DateColumn])
			if err != nil {
				return nil, errors.WithCode(errors.CodeValidationError,
					fmt.Errorf("row %d: date %q is not a recognised date: %w", line, row[schema.DateColumn], err))
			}
		}
		ds.Observations = append(ds.Observations, obs)
	}
	return ds, nil
}

// arm matches a group cell to the schema labels, literally first and then numerically
func (s Schema) arm(cell string) (Arm, error) {
	switch cell {
	case s.ControlValue:
		return Control, nil
	case s.TreatmentValue:
		return Treatment, nil
	}
	if v, err := cast.ToFloat64E(cell); err == nil {
		if c, err := cast.ToFloat64E(s.ControlValue); err == nil && v == c {
			return Control, nil
		}
		if t, err := cast.ToFloat64E(s.TreatmentValue); err == nil && v == t {
			return Treatment, nil
		}
	}
	return Control, fmt.Errorf("%w: %q (control %q, treatment %q)", core.ErrUnknownGroup, cell, s.ControlValue, s.TreatmentValue)
}

func coerceOutcome(cell string) (float64, error) {
	if v, err := cast.ToFloat64E(cell); err == nil {
		return v, nil
	}
	if b, err := cast.ToBoolE(cell); err == nil {
		return cast.ToFloat64(b), nil
	}
	return 0, fmt.Errorf("outcome %q is neither numeric nor boolean", cell)
}

// Split returns the outcomes of each arm in file order
func (d *Dataset) Split() (control, treatment []float64) {
	for _, o := range d.Observations {
		if o.Arm == Treatment {
			treatment = append(treatment, o.Outcome)
		} else {
			control = append(control, o.Outcome)
		}
	}
	return control, treatment
}

// IsBinary reports whether every outcome is 0 or 1
func (d *Dataset) IsBinary() bool {
	for _, o := range d.Observations {
		if o.Outcome != 0 && o.Outcome != 1 {
			return false
		}
	}
	return true
}

// Summary is the at-a-glance description shown after an upload
type Summary struct {
	RowCount       int        `json:"row_count"`
	ControlSize    int        `json:"control_size"`
	TreatmentSize  int        `json:"treatment_size"`
	DateMin        *time.Time `json:"date_min,omitempty"`
	DateMax        *time.Time `json:"date_max,omitempty"`
	ConversionRate float64    `json:"conversion_rate"`
}

// Summary counts rows per arm, spans the date range and averages the outcome
func (d *Dataset) Summary() (Summary, error) {
	if len(d.Observations) == 0 {
		return Summary{}, errors.WithCode(errors.CodeValidationError, core.ErrEmptyDataset)
	}

	outcomes := make([]float64, len(d.Observations))
	s := Summary{RowCount: len(d.Observations)}
	for i, o := range d.Observations {
		outcomes[i] = o.Outcome
		if o.Arm == Treatment {
			s.TreatmentSize++
		} else {
			s.ControlSize++
		}
		if o.Date.IsZero() {
			continue
		}
		if s.DateMin == nil || o.Date.Before(*s.DateMin) {
			t := o.Date
			s.DateMin = &t
		}
		if s.DateMax == nil || o.Date.After(*s.DateMax) {
			t := o.Date
			s.DateMax = &t
		}
	}

	rate, err := stats.Mean(outcomes)
	if err != nil {
		return Summary{}, errors.Computation("conversion rate", err)
	}
	s.ConversionRate = rate
	return s, nil
}

// DailyMetric is the mean outcome of each arm on one calendar day.
// A rate is nil when the arm has no observations that day.
type DailyMetric struct {
	Date           time.Time `json:"date"`
	ControlCount   int       `json:"control_count"`
	TreatmentCount int       `json:"treatment_count"`
	ControlRate    *float64  `json:"control_rate"`
	TreatmentRate  *float64  `json:"treatment_rate"`
}

// DailyMetrics groups dated observations by day, ascending
func (d *Dataset) DailyMetrics() ([]DailyMetric, error) {
	if !d.HasDates {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %q", core.ErrMissingColumn, d.Schema.DateColumn))
	}

	type bucket struct{ control, treatment []float64 }
	days := make(map[time.Time]*bucket)
	for _, o := range d.Observations {
		if o.Date.IsZero() {
			continue
		}
		day := time.Date(o.Date.Year(), o.Date.Month(), o.Date.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := days[day]
		if !ok {
			b = &bucket{}
			days[day] = b
		}
		if o.Arm == Treatment {
			b.treatment = append(b.treatment, o.Outcome)
		} else {
			b.control = append(b.control, o.Outcome)
		}
	}

	metrics := make([]DailyMetric, 0, len(days))
	for day, b := range days {
		metrics = append(metrics, DailyMetric{
			Date:           day,
			ControlCount:   len(b.control),
			TreatmentCount: len(b.treatment),
			ControlRate:    meanOrNil(b.control),
			TreatmentRate:  meanOrNil(b.treatment),
		})
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Date.Before(metrics[j].Date) })
	return metrics, nil
}

func meanOrNil(xs []float64) *float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return nil
	}
	return &m
}
