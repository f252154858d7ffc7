package reader

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/qoq/relation"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id INTEGER PRIMARY KEY,
			owner VARCHAR(40),
			balance DECIMAL(10, 2),
			rate REAL,
			active BOOLEAN,
			opened DATETIME,
			blob BLOB
		);
		INSERT INTO accounts VALUES (1, 'alice', 10.25, 0.5, 1, '2024-03-15 14:30:45', x'0102');
		INSERT INTO accounts VALUES (2, 'bob', 3, 1.5, 0, NULL, NULL);
	`)
	require.NoError(t, err)
	return db
}

func TestReadTable(t *testing.T) {
	db := openSQLite(t)

	rel, err := ReadTable(t.Context(), db, "accounts")
	require.NoError(t, err)

	assert.Equal(t, []relation.Column{
		{Name: "id", Type: relation.TypeBigint},
		{Name: "owner", Type: relation.TypeVarchar},
		{Name: "balance", Type: relation.TypeDecimal},
		{Name: "rate", Type: relation.TypeDouble},
		{Name: "active", Type: relation.TypeBoolean},
		{Name: "opened", Type: relation.TypeTimestamp},
		{Name: "blob", Type: relation.TypeBinary},
	}, rel.Columns())
	require.Equal(t, 2, rel.Len())

	row := rel.Row(0)
	assert.Equal(t, int64(1), row[0])
	assert.Equal(t, "alice", row[1])
	assert.True(t, decimal.RequireFromString("10.25").Equal(row[2].(decimal.Decimal)))
	assert.Equal(t, 0.5, row[3])
	assert.Equal(t, true, row[4])
	assert.True(t, time.Date(2024, 3, 15, 14, 30, 45, 0, time.UTC).Equal(row[5].(time.Time)))
	assert.Equal(t, []byte{1, 2}, row[6])

	assert.Equal(t, false, rel.Row(1)[4])
	assert.Nil(t, rel.Row(1)[5])
}

func TestReadQuery_InfersExpressionTypes(t *testing.T) {
	db := openSQLite(t)

	rel, err := ReadQuery(t.Context(), db, "SELECT owner, COUNT(*) AS n, SUM(rate) AS total FROM accounts WHERE id > ? GROUP BY owner", 0)
	require.NoError(t, err)

	assert.Equal(t, relation.TypeBigint, rel.Column(1).Type)
	assert.Equal(t, relation.TypeDouble, rel.Column(2).Type)
	assert.Equal(t, 2, rel.Len())
}

func TestReadQuery_Errors(t *testing.T) {
	db := openSQLite(t)

	_, err := ReadQuery(t.Context(), db, "SELECT * FROM missing")
	assert.ErrorContains(t, err, "failed to query")

	_, err = ReadTable(t.Context(), db, `acc"ounts`)
	assert.Error(t, err)
}
