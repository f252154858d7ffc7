// Package cli implements the qoq command line: one-shot queries, schema
// inspection and an interactive shell over tables loaded from Parquet files,
// YAML fixtures and SQLite databases.
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/qoq/internal/config"
	"github.com/vegasq/qoq/internal/logger"
	"github.com/vegasq/qoq/output"
	"github.com/vegasq/qoq/query"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath   string
	Format       string
	MaxRows      int
	LogLevel     string
	Tables       []string
	SQLite       string
	SQLiteTables []string
}

// app is the state shared by subcommands once flags and config are resolved.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	engine  *query.Engine
	catalog *query.Catalog
	db      *sql.DB
}

// NewRootCommand creates the root command for the qoq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "qoq",
		Short: "qoq - query of queries",
		Long: `Run SQL SELECT statements over in-memory tables.

Tables are loaded from Parquet files (globs add a _file column), YAML
fixture files and SQLite databases, then queried with joins, grouping,
subqueries and UNION.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: ./qoq.yaml or ~/.qoq/qoq.yaml)")
	flags.StringVarP(&opts.Format, "format", "f", "", "output format ("+strings.Join(output.Formats, "|")+")")
	flags.IntVar(&opts.MaxRows, "max-rows", 0, "cap result rows (0 = unlimited)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringArrayVarP(&opts.Tables, "table", "t", nil, "register a table as name=path; .yaml/.yml fixture files register their own tables")
	flags.StringVar(&opts.SQLite, "sqlite", "", "SQLite database to copy tables from")
	flags.StringSliceVar(&opts.SQLiteTables, "sqlite-table", nil, "SQLite tables to copy (default: all)")

	cmd.AddCommand(newQueryCommand(a))
	cmd.AddCommand(newSchemaCommand(a))
	cmd.AddCommand(newShellCommand(a))

	return cmd
}

// init loads configuration, applies flag overrides and builds the catalog.
func (a *app) init(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = opts.Format
	}
	if flags.Changed("max-rows") {
		cfg.Engine.MaxRows = opts.MaxRows
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if strings.EqualFold(cfg.Log.Output, "stderr") {
		a.log, err = logger.NewWriter(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	} else {
		a.log, err = logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.engine = query.NewEngine(cfg.EngineOptions(a.log.Named("engine").Zap())...)
	a.catalog = query.NewCatalog()

	specs := make([]string, 0, len(cfg.Tables)+len(opts.Tables))
	for name, path := range cfg.Tables {
		specs = append(specs, name+"="+path)
	}
	specs = append(specs, opts.Tables...)
	if err := a.loadTables(specs); err != nil {
		return err
	}
	if opts.SQLite != "" {
		if err := a.loadSQLite(cmd.Context(), opts.SQLite, opts.SQLiteTables); err != nil {
			return err
		}
	}
	a.log.Debug("catalog ready", "tables", a.catalog.Names())
	return nil
}

// close releases the SQLite handle and flushes the logger.
func (a *app) close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	if a.log != nil {
		// Syncing stderr fails on some platforms; nothing useful to report.
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

// formatter returns the configured output formatter writing to cmd's stdout.
func (a *app) formatter(cmd *cobra.Command) (output.Formatter, error) {
	return output.New(a.cfg.Output.Format, cmd.OutOrStdout())
}
