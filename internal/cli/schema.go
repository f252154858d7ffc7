package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/qoq/reader"
	"github.com/vegasq/qoq/relation"
)

func newSchemaCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table|file.parquet>",
		Short: "Show the columns of a table or Parquet file",
		Long: `Show the columns of a registered table, or the full field schema of a
Parquet file. For a glob, the first matching file is inspected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := a.schema(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(rel)
		},
	}
}

func (a *app) schema(cmd *cobra.Command, target string) (*relation.Relation, error) {
	if rel, ok := a.catalog.Relation(target); ok {
		return tableSchema(rel), nil
	}
	if !strings.EqualFold(filepath.Ext(target), ".parquet") && !strings.ContainsAny(target, "*?[") {
		return nil, fmt.Errorf("unknown table %q", target)
	}

	path := target
	if strings.ContainsAny(target, "*?[") {
		matches, err := filepath.Glob(target)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", target)
		}
		path = matches[0]
		if len(matches) > 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "# Showing schema from: %s (%d files matched)\n", path, len(matches))
		}
	}

	infos, err := reader.ExtractSchemaInfo(path)
	if err != nil {
		return nil, err
	}
	rel := relation.New(
		relation.Column{Name: "name", Type: relation.TypeVarchar},
		relation.Column{Name: "type", Type: relation.TypeVarchar},
		relation.Column{Name: "physical_type", Type: relation.TypeVarchar},
		relation.Column{Name: "logical_type", Type: relation.TypeVarchar},
		relation.Column{Name: "required", Type: relation.TypeBoolean},
		relation.Column{Name: "optional", Type: relation.TypeBoolean},
		relation.Column{Name: "repeated", Type: relation.TypeBoolean},
	)
	for _, info := range infos {
		var logical any
		if info.LogicalType != "" {
			logical = info.LogicalType
		}
		if err := rel.AddRow(info.Name, info.TypeName, info.PhysicalType, logical,
			info.Required, info.Optional, info.Repeated); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

func tableSchema(rel *relation.Relation) *relation.Relation {
	out := relation.New(
		relation.Column{Name: "name", Type: relation.TypeVarchar},
		relation.Column{Name: "type", Type: relation.TypeVarchar},
	)
	for _, col := range rel.Columns() {
		_ = out.AddRow(col.Name, col.Type.String())
	}
	return out
}
