package cli

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vegasq/qoq/reader"
)

// tableSpec is one --table argument.
type tableSpec struct {
	name string
	path string
}

// parseTableSpec splits "name=path". A bare path is named after its file,
// without extension.
func parseTableSpec(s string) (tableSpec, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok {
		path = s
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if isFixture(path) {
			name = ""
		}
	}
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if path == "" {
		return tableSpec{}, fmt.Errorf("invalid table %q: missing path", s)
	}
	if ok && name == "" {
		return tableSpec{}, fmt.Errorf("invalid table %q: missing name", s)
	}
	if !isFixture(path) && strings.ContainsAny(name, "*?[") {
		return tableSpec{}, fmt.Errorf("invalid table %q: name a glob with name=pattern", s)
	}
	return tableSpec{name: name, path: path}, nil
}

func isFixture(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// loadTables registers every spec in the catalog. Later specs replace
// earlier tables with the same name.
func (a *app) loadTables(specs []string) error {
	for _, s := range specs {
		spec, err := parseTableSpec(s)
		if err != nil {
			return err
		}

		if isFixture(spec.path) {
			tables, err := reader.LoadFixtureFile(spec.path)
			if err != nil {
				return err
			}
			for name, rel := range tables {
				a.catalog.Register(name, rel)
				a.log.Debug("registered fixture table", "table", name, "rows", rel.Len(), "file", spec.path)
			}
			continue
		}

		rel, err := reader.ReadFiles(spec.path)
		if err != nil {
			return fmt.Errorf("table %s: %w", spec.name, err)
		}
		a.catalog.Register(spec.name, rel)
		a.log.Debug("registered parquet table", "table", spec.name, "rows", rel.Len(), "path", spec.path)
	}
	return nil
}

// loadSQLite copies tables from a SQLite database. With no names, every
// user table is copied.
func (a *app) loadSQLite(ctx context.Context, dsn string, names []string) error {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	a.db = db

	if len(names) == 0 {
		list, err := reader.ReadQuery(ctx, db,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
		if err != nil {
			return err
		}
		for i := range list.Len() {
			names = append(names, fmt.Sprint(list.Cell(0, i)))
		}
	}

	for _, name := range names {
		rel, err := reader.ReadTable(ctx, db, name)
		if err != nil {
			return fmt.Errorf("sqlite table %s: %w", name, err)
		}
		a.catalog.Register(name, rel)
		a.log.Debug("registered sqlite table", "table", name, "rows", rel.Len())
	}
	return nil
}
