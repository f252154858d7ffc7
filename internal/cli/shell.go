package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/vegasq/qoq/output"
)

const (
	shellPrompt     = "qoq> "
	shellContPrompt = "  -> "
)

// lineReader is the part of *readline.Instance the shell uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive SQL shell",
		Long: `Start an interactive SQL shell over the registered tables.

Statements end with a semicolon and may span lines. Backslash commands
(\d, \f, \q) run immediately; \? lists them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          shellPrompt,
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       `\q`,
				AutoComplete:    newCompleter(a),
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize readline: %w", err)
			}
			defer rl.Close()
			return newShell(a, rl, cmd.OutOrStdout()).run(cmd.Context())
		},
	}
}

type shell struct {
	app    *app
	rl     lineReader
	out    io.Writer
	format string
}

func newShell(a *app, rl lineReader, out io.Writer) *shell {
	return &shell{app: a, rl: rl, out: out, format: a.cfg.Output.Format}
}

// run reads statements until \q or EOF. Statement errors are printed and the
// loop continues.
func (s *shell) run(ctx context.Context) error {
	var buf strings.Builder
	for {
		if buf.Len() > 0 {
			s.rl.SetPrompt(shellContPrompt)
		} else {
			s.rl.SetPrompt(shellPrompt)
		}

		line, err := s.rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			buf.Reset()
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("readline error: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, `\`) {
			if s.command(line) {
				return nil
			}
			continue
		}
		if buf.Len() == 0 && slices.Contains([]string{"exit", "quit"}, strings.ToLower(strings.TrimSuffix(line, ";"))) {
			return nil
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			continue
		}

		sql := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()
		s.statement(ctx, sql)
	}
}

func (s *shell) statement(ctx context.Context, sql string) {
	rel, err := s.app.execute(ctx, sql, nil)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	f, err := output.New(s.format, s.out)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if err := f.Format(rel); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "(%d rows)\n", rel.Len())
}

// command runs a backslash command and reports whether the shell should exit.
func (s *shell) command(line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case `\q`, `\quit`:
		return true

	case `\?`, `\help`:
		fmt.Fprintln(s.out, `\d          list tables`)
		fmt.Fprintln(s.out, `\d NAME     describe a table`)
		fmt.Fprintln(s.out, `\f FORMAT   set the output format (`+strings.Join(output.Formats, ", ")+`)`)
		fmt.Fprintln(s.out, `\q          quit`)

	case `\d`:
		if len(parts) == 1 {
			for _, name := range s.app.catalog.Names() {
				fmt.Fprintln(s.out, name)
			}
			return false
		}
		rel, ok := s.app.catalog.Relation(parts[1])
		if !ok {
			fmt.Fprintf(s.out, "Error: unknown table %q\n", parts[1])
			return false
		}
		for _, col := range rel.Columns() {
			fmt.Fprintf(s.out, "%-24s %s\n", col.Name, col.Type)
		}

	case `\f`:
		if len(parts) != 2 {
			fmt.Fprintf(s.out, "output format: %s\n", s.format)
			return false
		}
		if _, err := output.New(parts[1], io.Discard); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return false
		}
		s.format = strings.ToLower(parts[1])

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (\\? for help)\n", parts[0])
	}
	return false
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".qoq_history")
}

func newCompleter(a *app) *readline.PrefixCompleter {
	tables := func(string) []string { return a.catalog.Names() }
	return readline.NewPrefixCompleter(
		readline.PcItem("SELECT"),
		readline.PcItem("FROM", readline.PcItemDynamic(tables)),
		readline.PcItem("WHERE"),
		readline.PcItem("GROUP BY"),
		readline.PcItem("ORDER BY"),
		readline.PcItem("UNION"),
		readline.PcItem(`\d`, readline.PcItemDynamic(tables)),
		readline.PcItem(`\f`, readline.PcItem("table"), readline.PcItem("csv"), readline.PcItem("json")),
		readline.PcItem(`\?`),
		readline.PcItem(`\q`),
	)
}
