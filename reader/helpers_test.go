package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

// writeParquet writes rows to dir/name and returns the path
func writeParquet[T any](t *testing.T, dir, name string, rows []T) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	defer func() { _ = f.Close() }()

	writer := parquet.NewGenericWriter[T](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return path
}

type personRow struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Age    int32   `parquet:"age"`
	Score  float64 `parquet:"score"`
	Active bool    `parquet:"active"`
	Team   *string `parquet:"team,optional"`
}

func strPtr(s string) *string { return &s }

func samplePeople() []personRow {
	return []personRow{
		{ID: 1, Name: "Alice", Age: 30, Score: 95.5, Active: true, Team: strPtr("red")},
		{ID: 2, Name: "Bob", Age: 25, Score: 71, Active: false},
		{ID: 3, Name: "Carol", Age: 41, Score: 88.25, Active: true, Team: strPtr("blue")},
	}
}
