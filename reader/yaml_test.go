package reader

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/qoq/relation"
)

func TestLoadFixtureFile(t *testing.T) {
	tables, err := LoadFixtureFile("testdata/fixtures.yaml")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	users := tables["users"]
	require.NotNil(t, users)
	assert.Equal(t, []string{"id", "name", "balance", "joined", "active"}, users.ColumnNames())
	assert.Equal(t, relation.TypeDecimal, users.Column(2).Type)
	require.Equal(t, 3, users.Len())

	row := users.Row(0)
	assert.Equal(t, int32(1), row[0])
	assert.Equal(t, "Alice", row[1])
	assert.True(t, decimal.RequireFromString("10.5").Equal(row[2].(decimal.Decimal)))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), row[3])
	assert.Equal(t, true, row[4])

	assert.Equal(t, []any{int32(3), nil, nil, nil, nil}, users.Row(2))
}

func TestLoadFixtures_Records(t *testing.T) {
	tables, err := LoadFixtureFile("testdata/fixtures.yaml")
	require.NoError(t, err)

	events := tables["events"]
	require.NotNil(t, events)
	assert.Equal(t, []relation.Column{
		{Name: "kind", Type: relation.TypeVarchar},
		{Name: "note", Type: relation.TypeVarchar},
		{Name: "user_id", Type: relation.TypeBigint},
	}, events.Columns())
	assert.Equal(t, []any{"login", nil, int64(1)}, events.Row(0))
}

func TestLoadFixtures_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"malformed yaml", "tables: [", "failed to decode"},
		{"unknown type", "tables:\n  t:\n    columns: [{name: a, type: WIDGET}]\n", "unknown column type"},
		{"short row", "tables:\n  t:\n    columns: [{name: a}, {name: b}]\n    rows: [[1]]\n", "row width"},
		{"bad cell", "tables:\n  t:\n    columns: [{name: a, type: INTEGER}]\n    rows: [[abc]]\n", "row 0 column a"},
		{"duplicate column", "tables:\n  t:\n    columns: [{name: a}, {name: A}]\n", "duplicate column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixtures(strings.NewReader(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
