package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// Format is an accepted upload format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// missingTokens are read as empty cells, matching pandas' default na_values.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "NULL": {}, "null": {}, "None": {}, "#N/A": {},
}

// FormatFromFilename picks the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return CSV, nil
	case "xlsx":
		return XLSX, nil
	default:
		return "", errors.NewUpstreamParseError(filepath.Ext(name), "unsupported format", nil)
	}
}

// Load parses r as the given format. The first row is the header.
func Load(r io.Reader, format Format) (*Table, error) {
	var records [][]string
	var err error
	switch format {
	case CSV:
		records, err = readCSV(r)
	case XLSX:
		records, err = readXLSX(r)
	default:
		return nil, errors.NewUpstreamParseError(string(format), "unsupported format", nil)
	}
	if err != nil {
		return nil, errors.NewUpstreamParseError(string(format), "unparseable file", err)
	}
	t, err := FromRecords(records)
	if err != nil {
		return nil, errors.NewUpstreamParseError(string(format), "unparseable file", err)
	}
	return t, nil
}

// LoadBytes is Load over an in-memory blob.
func LoadBytes(data []byte, format Format) (*Table, error) {
	return Load(bytes.NewReader(data), format)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	// GetRows drops trailing empty cells.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
	return rows, nil
}

// FromRecords builds a table from a header row followed by data rows. A column
// whose non-missing cells all parse as numbers becomes numeric; any other
// column keeps its cells as strings.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}
	header := headerNames(records[0])
	body := records[1:]

	cols := make([]Column, len(header))
	for j, name := range header {
		raw := make([]string, len(body))
		for i, rec := range body {
			if j >= len(rec) {
				return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+2, len(header), len(rec))
			}
			raw[i] = strings.TrimSpace(rec[j])
		}
		cols[j] = Column{Name: name, Values: parseCells(raw)}
	}
	return New(cols...)
}

func parseCells(raw []string) []Value {
	nums := make([]float64, len(raw))
	numeric := true
	for i, s := range raw {
		if _, miss := missingTokens[s]; miss {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}

	out := make([]Value, len(raw))
	for i, s := range raw {
		if _, miss := missingTokens[s]; miss {
			out[i] = Missing()
			continue
		}
		if numeric {
			out[i] = Num(nums[i])
		} else {
			out[i] = Str(s)
		}
	}
	return out
}

// headerNames fills blank names and de-duplicates repeats ("a", "a.1").
func headerNames(row []string) []string {
	used := make(map[string]bool, len(row))
	count := make(map[string]int, len(row))
	out := make([]string, len(row))
	for i, name := range row {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			count[base]++
			name = fmt.Sprintf("%s.%d", base, count[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
