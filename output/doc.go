// Package output renders relations for people and pipelines.
//
// # Supported Formats
//
//   - JSON Lines: one JSON object per row, keys in column order
//   - CSV: header row plus one record per row
//   - Table: a bordered ASCII table
//
// # Basic Usage
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
//
// # Value Rendering
//
// NULL is omitted from CSV (empty field), null in JSON and "NULL" in tables.
// Decimals stay exact and times use RFC 3339 in JSON.
//
// CSV values starting with =, +, -, @, |, tab or a line break are prefixed
// with a single quote so spreadsheet applications do not run them as
// formulas.
package output
