package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// rawColumn is the required spreadsheet column holding the messy text.
const rawColumn = "raw_data"

// ReadRows reads the raw_data column from a CSV or XLSX file. The
// first row must be a header containing a raw_data column; every
// following row contributes one value (short rows contribute "").
func ReadRows(filename string, r io.Reader) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q (use .csv or .xlsx)", filepath.Ext(filename))
	}
}

func readCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	return columnValues(records)
}

func readXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return columnValues(rows)
}

// columnValues locates the raw_data header and collects its column.
func columnValues(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	col := -1
	for i, name := range rows[0] {
		if strings.TrimSpace(name) == rawColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("the file must contain a column named %q", rawColumn)
	}

	values := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col < len(row) {
			values = append(values, row[col])
		} else {
			values = append(values, "")
		}
	}

	return values, nil
}
