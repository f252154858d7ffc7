package driver

import (
	"database/sql/driver"
	"io"
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/relation"
)

// rows iterates a materialized result
type rows struct {
	rel  *relation.Relation
	next int
}

var (
	_ driver.Rows                           = (*rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
)

func newRows(rel *relation.Relation) *rows {
	return &rows{rel: rel}
}

// Columns returns the result column names
func (r *rows) Columns() []string {
	return r.rel.ColumnNames()
}

// Close releases the result
func (r *rows) Close() error {
	r.next = r.rel.Len()
	return nil
}

// Next copies the next row into dest
func (r *rows) Next(dest []driver.Value) error {
	if r.next >= r.rel.Len() {
		return io.EOF
	}
	for i, v := range r.rel.Row(r.next) {
		dest[i] = driverValue(v)
	}
	r.next++
	return nil
}

// ColumnTypeDatabaseTypeName returns the SQL type name, e.g. "VARCHAR"
func (r *rows) ColumnTypeDatabaseTypeName(i int) string {
	return r.rel.Column(i).Type.String()
}

// ColumnTypeNullable reports every column as nullable
func (r *rows) ColumnTypeNullable(int) (nullable, ok bool) {
	return true, true
}

var (
	scanString  = reflect.TypeOf("")
	scanInt64   = reflect.TypeOf(int64(0))
	scanFloat64 = reflect.TypeOf(float64(0))
	scanBool    = reflect.TypeOf(false)
	scanTime    = reflect.TypeOf(time.Time{})
	scanBytes   = reflect.TypeOf([]byte(nil))
	scanAny     = reflect.TypeOf((*any)(nil)).Elem()
)

// ColumnTypeScanType returns the Go type Next produces for column i
func (r *rows) ColumnTypeScanType(i int) reflect.Type {
	switch t := r.rel.Column(i).Type; {
	case t.IsString(), t == relation.TypeDecimal:
		return scanString
	case t == relation.TypeInteger, t == relation.TypeBigint:
		return scanInt64
	case t == relation.TypeDouble:
		return scanFloat64
	case t.IsBoolean():
		return scanBool
	case t.IsTemporal():
		return scanTime
	case t == relation.TypeBinary:
		return scanBytes
	}
	return scanAny
}

// driverValue narrows engine values to the driver.Value set. Decimals
// become their exact string form; values with no driver form pass through.
func driverValue(v any) driver.Value {
	switch val := v.(type) {
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float32:
		return float64(val)
	case decimal.Decimal:
		return val.String()
	}
	return v
}
