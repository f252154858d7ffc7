package reader

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

// SchemaInfo describes one leaf column of a parquet file.
type SchemaInfo struct {
	Name         string              `json:"name"`
	Type         relation.ColumnType `json:"-"`
	TypeName     string              `json:"type"`
	PhysicalType string              `json:"physical_type"`
	LogicalType  string              `json:"logical_type,omitempty"`
	Required     bool                `json:"required"`
	Optional     bool                `json:"optional"`
	Repeated     bool                `json:"repeated"`
}

// ExtractSchemaInfo lists the leaf columns of a parquet file. Nested fields
// use dot notation (e.g. "address.street").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	var infos []SchemaInfo
	for _, field := range r.Schema().Fields() {
		infos = appendFieldInfo(infos, field, "", false)
	}
	return infos, nil
}

// appendFieldInfo walks field depth-first, emitting only leaves. A field is
// repeated when it or any parent is.
func appendFieldInfo(infos []SchemaInfo, field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if !field.Leaf() {
		for _, child := range field.Fields() {
			infos = appendFieldInfo(infos, child, name, repeated)
		}
		return infos
	}

	t := leafType(field)
	if repeated {
		t = relation.TypeObject
	}
	info := SchemaInfo{
		Name:         name,
		Type:         t,
		TypeName:     t.String(),
		PhysicalType: physicalTypeName(field.Type().Kind()),
		Required:     field.Required(),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}
	if lt := field.Type().LogicalType(); lt != nil {
		info.LogicalType = lt.String()
	}
	return append(infos, info)
}

func physicalTypeName(kind parquet.Kind) string {
	switch kind {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// ColumnTypeOf maps a top-level parquet field to a relation column type.
// Groups and repeated fields hold nested values and map to OBJECT.
func ColumnTypeOf(field parquet.Field) relation.ColumnType {
	if !field.Leaf() || field.Repeated() {
		return relation.TypeObject
	}
	return leafType(field)
}

func leafType(field parquet.Field) relation.ColumnType {
	t := field.Type()
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil, lt.UUID != nil:
			return relation.TypeVarchar
		case lt.Decimal != nil:
			return relation.TypeDecimal
		case lt.Date != nil:
			return relation.TypeDate
		case lt.Time != nil:
			return relation.TypeTime
		case lt.Timestamp != nil:
			return relation.TypeTimestamp
		case lt.Integer != nil:
			if lt.Integer.BitWidth == 64 || (lt.Integer.BitWidth == 32 && !lt.Integer.IsSigned) {
				return relation.TypeBigint
			}
			return relation.TypeInteger
		}
	}

	switch t.Kind() {
	case parquet.Boolean:
		return relation.TypeBoolean
	case parquet.Int32:
		return relation.TypeInteger
	case parquet.Int64:
		return relation.TypeBigint
	case parquet.Float, parquet.Double:
		return relation.TypeDouble
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return relation.TypeBinary
	default:
		return relation.TypeOther
	}
}

// convertValue turns a value decoded by parquet-go into the representation
// of the field's column type
func convertValue(field parquet.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t := ColumnTypeOf(field)
	if t == relation.TypeObject || t == relation.TypeOther {
		return v, nil
	}

	lt := field.Type().LogicalType()
	switch {
	case lt != nil && lt.UUID != nil:
		if b, ok := bytesOf(v); ok && len(b) == 16 {
			id, err := uuid.FromBytes(b)
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}
	case lt != nil && lt.Decimal != nil:
		return decimalValue(v, lt.Decimal.Scale)
	case lt != nil && lt.Date != nil:
		if days, ok := v.(int32); ok {
			return time.Unix(int64(days)*86400, 0).UTC(), nil
		}
	case lt != nil && lt.Timestamp != nil:
		if n, ok := v.(int64); ok {
			return unitTime(n, lt.Timestamp.Unit), nil
		}
	case lt != nil && lt.Time != nil:
		switch n := v.(type) {
		case int32:
			return unitTime(int64(n), lt.Time.Unit), nil
		case int64:
			return unitTime(n, lt.Time.Unit), nil
		}
	}
	if t == relation.TypeBinary {
		if b, ok := bytesOf(v); ok {
			return b, nil
		}
	}
	return query.CastValue(v, t)
}

func bytesOf(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case [16]byte:
		return b[:], true
	case string:
		return []byte(b), true
	}
	return nil, false
}

func unitTime(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Nanos != nil:
		return time.Unix(0, n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}

// decimalValue decodes an unscaled decimal stored as an integer or as
// big-endian two's complement bytes
func decimalValue(v any, scale int32) (decimal.Decimal, error) {
	switch n := v.(type) {
	case int32:
		return decimal.New(int64(n), -scale), nil
	case int64:
		return decimal.New(n, -scale), nil
	case decimal.Decimal:
		return n, nil
	}
	b, ok := bytesOf(v)
	if !ok {
		return decimal.Zero, fmt.Errorf("cannot decode %T as decimal", v)
	}
	unscaled := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		unscaled.Sub(unscaled, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return decimal.NewFromBigInt(unscaled, -scale), nil
}
