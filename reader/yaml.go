package reader

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

// Fixture is the YAML form of a set of named tables:
//
//	tables:
//	  users:
//	    columns:
//	      - {name: id, type: INTEGER}
//	      - {name: name, type: VARCHAR}
//	    rows:
//	      - [1, Alice]
//	      - [2, ~]
//
// A table may instead list records as maps; column types are then inferred
// from the first non-null value of each column.
type Fixture struct {
	Tables map[string]FixtureTable `yaml:"tables"`
}

// FixtureTable is one table of a Fixture
type FixtureTable struct {
	Columns []FixtureColumn  `yaml:"columns"`
	Rows    [][]any          `yaml:"rows"`
	Records []map[string]any `yaml:"records"`
}

// FixtureColumn declares a column name and SQL type name
type FixtureColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadFixtureFile reads a YAML fixture file
func LoadFixtureFile(path string) (map[string]*relation.Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

// LoadFixtures decodes a YAML fixture into relations keyed by table name
func LoadFixtures(r io.Reader) (map[string]*relation.Relation, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	out := make(map[string]*relation.Relation, len(fx.Tables))
	for name, table := range fx.Tables {
		rel, err := table.Relation()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		out[name] = rel
	}
	return out, nil
}

// Relation builds the table, casting every cell to its declared column type
func (t FixtureTable) Relation() (*relation.Relation, error) {
	if len(t.Columns) == 0 {
		return t.fromRecords()
	}

	cols := make([]relation.Column, len(t.Columns))
	for i, c := range t.Columns {
		typ := relation.TypeVarchar
		if c.Type != "" {
			var err error
			if typ, err = relation.ParseColumnType(c.Type); err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
		}
		cols[i] = relation.Column{Name: c.Name, Type: typ}
	}
	rel := relation.New(cols...)
	if rel.Width() != len(cols) {
		return nil, relation.ErrDuplicateColumn
	}

	for i, raw := range t.Rows {
		if len(raw) != len(cols) {
			return nil, fmt.Errorf("row %d: %w", i, relation.ErrRowWidth)
		}
		row := make([]any, len(cols))
		for c, v := range raw {
			cast, err := query.CastValue(v, cols[c].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, cols[c].Name, err)
			}
			row[c] = cast
		}
		if err := rel.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

// fromRecords orders columns by name since YAML maps carry no order
func (t FixtureTable) fromRecords() (*relation.Relation, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, rec := range t.Records {
		for k := range rec {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	records := make([]map[string]any, len(t.Records))
	for i, rec := range t.Records {
		norm := make(map[string]any, len(rec))
		for k, v := range rec {
			if n, ok := v.(int); ok {
				v = int64(n)
			}
			norm[k] = v
		}
		records[i] = norm
	}
	return relation.FromRecords(names, records)
}
