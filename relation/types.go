package relation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ColumnType is the declared SQL type of a relation column.
type ColumnType int

const (
	TypeNull ColumnType = iota
	TypeVarchar
	TypeChar
	TypeInteger
	TypeBigint
	TypeDecimal
	TypeDouble
	TypeDate
	TypeTime
	TypeTimestamp
	TypeBit
	TypeBoolean
	TypeBinary
	TypeObject
	TypeOther
)

var typeNames = map[ColumnType]string{
	TypeNull:      "NULL",
	TypeVarchar:   "VARCHAR",
	TypeChar:      "CHAR",
	TypeInteger:   "INTEGER",
	TypeBigint:    "BIGINT",
	TypeDecimal:   "DECIMAL",
	TypeDouble:    "DOUBLE",
	TypeDate:      "DATE",
	TypeTime:      "TIME",
	TypeTimestamp: "TIMESTAMP",
	TypeBit:       "BIT",
	TypeBoolean:   "BOOLEAN",
	TypeBinary:    "BINARY",
	TypeObject:    "OBJECT",
	TypeOther:     "OTHER",
}

// typeAliases maps the spellings accepted by ParseColumnType.
var typeAliases = map[string]ColumnType{
	"NULL":      TypeNull,
	"VARCHAR":   TypeVarchar,
	"STRING":    TypeVarchar,
	"TEXT":      TypeVarchar,
	"NVARCHAR":  TypeVarchar,
	"CHAR":      TypeChar,
	"INTEGER":   TypeInteger,
	"INT":       TypeInteger,
	"SMALLINT":  TypeInteger,
	"TINYINT":   TypeInteger,
	"BIGINT":    TypeBigint,
	"LONG":      TypeBigint,
	"DECIMAL":   TypeDecimal,
	"NUMERIC":   TypeDecimal,
	"NUMBER":    TypeDecimal,
	"DOUBLE":    TypeDouble,
	"FLOAT":     TypeDouble,
	"REAL":      TypeDouble,
	"DATE":      TypeDate,
	"TIME":      TypeTime,
	"TIMESTAMP": TypeTimestamp,
	"DATETIME":  TypeTimestamp,
	"BIT":       TypeBit,
	"BOOLEAN":   TypeBoolean,
	"BOOL":      TypeBoolean,
	"BINARY":    TypeBinary,
	"VARBINARY": TypeBinary,
	"BLOB":      TypeBinary,
	"OBJECT":    TypeObject,
	"OTHER":     TypeOther,
}

func (t ColumnType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType resolves a type name (case-insensitive) to a ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return TypeOther, fmt.Errorf("unknown column type %q", name)
	}
	return t, nil
}

// IsString reports whether values of the type compare as text.
func (t ColumnType) IsString() bool {
	return t == TypeVarchar || t == TypeChar
}

// IsNumeric reports whether values of the type compare as numbers.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeBigint, TypeDecimal, TypeDouble:
		return true
	}
	return false
}

// IsBoolean reports whether the type is BIT or BOOLEAN.
func (t ColumnType) IsBoolean() bool {
	return t == TypeBit || t == TypeBoolean
}

// IsTemporal reports whether the type holds time.Time values.
func (t ColumnType) IsTemporal() bool {
	return t == TypeDate || t == TypeTime || t == TypeTimestamp
}

// TypeOf infers the column type of a runtime value.
func TypeOf(v any) ColumnType {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeVarchar
	case int8, int16, int32, uint8, uint16:
		return TypeInteger
	case int, int64, uint, uint32, uint64:
		return TypeBigint
	case float32, float64:
		return TypeDouble
	case decimal.Decimal:
		return TypeDecimal
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeTimestamp
	case []byte:
		return TypeBinary
	default:
		return TypeObject
	}
}
