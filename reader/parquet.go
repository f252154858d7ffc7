package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/qoq/relation"
)

// FileColumn is the column ReadFiles adds to tag each row with its source
const FileColumn = "_file"

// maxFiles bounds how many files one glob pattern may expand to
const maxFiles = 1000

// Reader reads a parquet file into a relation.
//
// It keeps both the OS file handle and the parquet file handle so Close can
// release them.
type Reader struct {
	path   string
	file   *os.File
	pqFile *parquet.File
}

// NewReader opens path and validates it as a parquet file.
//
// Example:
//
//	r, err := NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	rel, err := r.Relation()
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{path: path, file: file, pqFile: pqFile}, nil
}

// Schema returns the parquet file schema
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// NumRows returns the row count recorded in the file metadata
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Columns maps the top-level schema fields to relation columns, in file
// order. Groups and repeated fields become OBJECT columns.
func (r *Reader) Columns() []relation.Column {
	fields := r.pqFile.Schema().Fields()
	cols := make([]relation.Column, len(fields))
	for i, f := range fields {
		cols[i] = relation.Column{Name: f.Name(), Type: ColumnTypeOf(f)}
	}
	return cols
}

// Relation reads every row of the file into a new relation.
//
// The whole file is loaded into memory.
func (r *Reader) Relation() (*relation.Relation, error) {
	fields := r.pqFile.Schema().Fields()
	rel := relation.New(r.Columns()...)
	if rel.Width() != len(fields) {
		return nil, fmt.Errorf("%s: %w", r.path, relation.ErrDuplicateColumn)
	}

	reader := parquet.NewReader(r.pqFile)
	defer func() { _ = reader.Close() }()

	for {
		record := make(map[string]any)
		if err := reader.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make([]any, len(fields))
		for i, f := range fields {
			v, err := convertValue(f, record[f.Name()])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name(), err)
			}
			row[i] = v
		}
		if err := rel.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

// Close releases the file handle. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadFile reads one parquet file into a relation
func ReadFile(path string) (*relation.Relation, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.Relation()
}

// ReadFiles reads every parquet file matching a glob pattern into one
// relation.
//
// A pattern without wildcards reads a single file unchanged. Otherwise each
// row gets a trailing _file column holding its source path, and every file
// must have the same columns as the first one.
//
// Examples:
//   - "data/*.parquet"
//   - "data/2024-*.parquet"
//   - "data/*/*.parquet"
func ReadFiles(pattern string) (*relation.Relation, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		return ReadFile(pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}

	var out *relation.Relation
	for _, path := range matches {
		rel, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if out == nil {
			cols := append(rel.Columns(), relation.Column{Name: FileColumn, Type: relation.TypeVarchar})
			out = relation.New(cols...)
			if out.Width() != len(cols) {
				return nil, fmt.Errorf("%s already has a %s column: %w", path, FileColumn, relation.ErrDuplicateColumn)
			}
		}
		if err := sameColumns(out, rel); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for i := range rel.Len() {
			if err := out.AddRow(slices.Concat(rel.Row(i), []any{path})...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// sameColumns checks rel against the leading columns of out
func sameColumns(out, rel *relation.Relation) error {
	if rel.Width() != out.Width()-1 {
		return fmt.Errorf("schema mismatch: %d columns, want %d", rel.Width(), out.Width()-1)
	}
	for i, c := range rel.Columns() {
		want := out.Column(i)
		if !strings.EqualFold(c.Name, want.Name) || c.Type != want.Type {
			return fmt.Errorf("schema mismatch at column %d: %s %s, want %s %s", i, c.Name, c.Type, want.Name, want.Type)
		}
	}
	return nil
}
