// Package importer parses size standard tables uploaded by administrators.
//
// Both formats carry the header row naics,title,basis,threshold,unit,effective_fy
// in any column order. XLSX files are read from their first sheet.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// Format is an accepted upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Columns is the required header row.
var Columns = []string{"naics", "title", "basis", "threshold", "unit", "effective_fy"}

// FormatFor picks the format from a file name or content type.
func FormatFor(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	switch {
	case strings.HasPrefix(contentType, "text/csv"):
		return FormatCSV, nil
	case strings.Contains(contentType, "spreadsheetml"):
		return FormatXLSX, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest,
		"upload a .csv or .xlsx file with headers: "+strings.Join(Columns, ","))
}

// Parse reads every row of r in the given format.
func Parse(format Format, r io.Reader) ([]sizestd.Standard, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported import format")
	}
}

// ParseCSV reads a CSV size standard table.
func ParseCSV(r io.Reader) ([]sizestd.Standard, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed CSV")
		}
		records = append(records, rec)
	}
	return parseRecords(records)
}

// ParseXLSX reads the first sheet of an XLSX workbook.
func ParseXLSX(r io.Reader) ([]sizestd.Standard, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to open XLSX file")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unable to read sheet "+sheet)
	}
	return parseRecords(rows)
}

func parseRecords(records [][]string) ([]sizestd.Standard, error) {
	if len(records) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file is empty")
	}
	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	var out []sizestd.Standard
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		row, err := parseRow(rec, cols)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("line %d: %s", line, err))
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "file has a header but no rows")
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[name] = i
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing columns: "+strings.Join(missing, ","))
	}
	return idx, nil
}

func parseRow(rec []string, cols map[string]int) (sizestd.Standard, error) {
	get := func(name string) string {
		i := cols[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	code, err := domain.ParseNAICSCode(get("naics"))
	if err != nil {
		return sizestd.Standard{}, errors.New("naics must be exactly six digits")
	}
	basis, err := sizestd.ParseBasisKind(get("basis"))
	if err != nil {
		return sizestd.Standard{}, errors.New("basis must be receipts or employees")
	}
	rawThreshold := strings.NewReplacer(",", "", "$", "", "_", "").Replace(get("threshold"))
	threshold, err := decimal.NewFromString(rawThreshold)
	if err != nil {
		return sizestd.Standard{}, fmt.Errorf("threshold %q is not a number", get("threshold"))
	}
	fy, err := strconv.Atoi(get("effective_fy"))
	if err != nil {
		return sizestd.Standard{}, fmt.Errorf("effective_fy %q is not a year", get("effective_fy"))
	}
	unit := get("unit")
	if unit == "" {
		if basis == sizestd.BasisReceipts {
			unit = "USD"
		} else {
			unit = "employees"
		}
	}

	row := sizestd.Standard{
		NAICS:       code,
		Title:       get("title"),
		Basis:       basis,
		Threshold:   threshold,
		Unit:        unit,
		EffectiveFY: fy,
	}
	if err := row.Validate(); err != nil {
		return sizestd.Standard{}, errors.New(dErrors.Message(err))
	}
	return row, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
