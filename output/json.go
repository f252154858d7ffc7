package output

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/relation"
)

// JSONFormatter outputs rows as JSON Lines, keys in column order
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row
func (j *JSONFormatter) Format(rel *relation.Relation) error {
	keys := make([][]byte, rel.Width())
	for i, name := range rel.ColumnNames() {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw := bufio.NewWriter(j.writer)
	for r := range rel.Len() {
		_ = bw.WriteByte('{')
		for c, v := range rel.Row(r) {
			if c > 0 {
				_ = bw.WriteByte(',')
			}
			b, err := json.Marshal(jsonValue(v))
			if err != nil {
				return err
			}
			_, _ = bw.Write(keys[c])
			_ = bw.WriteByte(':')
			_, _ = bw.Write(b)
		}
		_, _ = bw.WriteString("}\n")
	}
	return bw.Flush()
}

// jsonValue keeps decimals numeric and renders times as RFC 3339
func jsonValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return json.Number(val.String())
	case time.Time:
		return val.Format(time.RFC3339Nano)
	}
	return v
}
