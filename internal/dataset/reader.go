package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"goabtest/domain/core"
	"goabtest/internal/errors"
)

// Format is the on-disk layout of an uploaded dataset
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format from a file name's extension
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", errors.Wrapf(errors.WithCode(errors.CodeInvalidInput, core.ErrUnsupportedExt),
			"cannot read %q: only .csv and .xlsx files are supported", filepath.Base(name))
	}
}

// Table is the raw header-keyed content of a dataset, before any coercion
type Table struct {
	Headers []string
	Rows    []map[string]string
	Hash    core.Hash
}

// ReadTable reads CSV text or the first sheet of an XLSX workbook
func ReadTable(ctx context.Context, r io.Reader, format Format) (*Table, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "dataset").Str("format", string(format)).Logger()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dataset")
	}

	readStart := time.Now()
	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSV(raw)
	case FormatXLSX:
		rows, err = readXLSX(raw)
	default:
		return nil, errors.UnsupportedValue("format", string(format), string(FormatCSV), string(FormatXLSX))
	}
	if err != nil {
		return nil, err
	}
	logger.Debug().Dur("elapsed", time.Since(readStart)).Int("rows", len(rows)).Msg("dataset read")

	if len(rows) < 2 {
		return nil, errors.WithCode(errors.CodeValidationError,
			fmt.Errorf("%w: %s file must have at least a header row and one data row", core.ErrEmptyDataset, strings.ToUpper(string(format))))
	}

	table := processRows(rows)
	table.Hash = core.NewHash(raw)
	logger.Info().
		Int("columns", len(table.Headers)).
		Int("rows", len(table.Rows)).
		Str("hash", table.Hash.Short()).
		Msg("dataset parsed")
	return table, nil
}

func readCSV(raw []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("failed to read CSV file: %w", err))
	}
	return rows, nil
}

// readXLSX reads the first sheet of the workbook
func readXLSX(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("failed to open Excel file: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ValidationError("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err))
	}
	return rows, nil
}

// processRows converts raw string rows into header-keyed rows; blank lines are dropped
func processRows(rows [][]string) *Table {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	data := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rowData := make(map[string]string, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		data = append(data, rowData)
	}
	return &Table{Headers: headers, Rows: data}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// HasColumn reports whether the header row names column
func (t *Table) HasColumn(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}
