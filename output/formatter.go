package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/qoq/relation"
)

// Formatter writes a relation in one output format.
type Formatter interface {
	// Format writes every row of rel, columns in relation order
	Format(rel *relation.Relation) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Supported format names
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatTable = "table"
)

// Formats lists the names accepted by New
var Formats = []string{FormatJSON, FormatCSV, FormatTable}

// New returns the formatter registered under name
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case FormatJSON, "jsonl":
		return NewJSONFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	case FormatTable:
		return NewTableFormatter(w), nil
	}
	return nil, fmt.Errorf("unsupported output format %q (want one of %s)", name, strings.Join(Formats, ", "))
}
