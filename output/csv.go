package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

// CSVFormatter outputs rows as CSV with a header row
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the header and every row. An empty relation still gets
// its header.
func (c *CSVFormatter) Format(rel *relation.Relation) error {
	csvWriter := csv.NewWriter(c.writer)

	if err := csvWriter.Write(rel.ColumnNames()); err != nil {
		return err
	}

	record := make([]string, rel.Width())
	for r := range rel.Len() {
		for i, v := range rel.Row(r) {
			record[i] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a cell to its CSV text. NULL is the empty string.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return sanitize(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return query.ToString(val)
	}
}

// sanitize guards against CSV injection by quoting values that spreadsheet
// applications would run as formulas
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(s, "'", "''")
	}
	return s
}
