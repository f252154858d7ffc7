package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

// NullText is how the table formatter shows NULL
const NullText = "NULL"

// TableFormatter renders a bordered ASCII table
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new ASCII table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders rel with its column names as the header
func (f *TableFormatter) Format(rel *relation.Relation) error {
	table := tablewriter.NewWriter(f.writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(rel.ColumnNames())

	for r := range rel.Len() {
		row := make([]string, rel.Width())
		for i, v := range rel.Row(r) {
			if v == nil {
				row[i] = NullText
				continue
			}
			row[i] = query.ToString(v)
		}
		table.Append(row)
	}
	table.Render()
	return nil
}
