package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dataset is a table: Headers fix the column order and each row is keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	errNoHeaders = errors.New("export: dataset has no headers")
)

// CSVExporter writes datasets as RFC 4180 CSV. Cells a spreadsheet would
// evaluate as a formula are prefixed with a quote, since report text is
// free-form user input.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds an exporter; bom prepends a UTF-8 byte order mark
// so Excel keeps accented characters.
func NewCSVExporter(bom bool) *CSVExporter {
	return &CSVExporter{bom: bom}
}

// Render returns the dataset as CSV bytes.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the dataset to w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return errNoHeaders
	}
	if e.bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(data.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = neutralize(row[header])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", n+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func neutralize(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
