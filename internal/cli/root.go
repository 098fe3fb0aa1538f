// Package cli provides the resumesql command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zachkp/resume-terminal/internal/config"
	"github.com/Zachkp/resume-terminal/internal/logger"
	"github.com/Zachkp/resume-terminal/internal/resume"
	"github.com/Zachkp/resume-terminal/internal/sqlengine"
	"github.com/Zachkp/resume-terminal/internal/terminal"
)

// Version is set at build time.
var Version = "dev"

// ErrQueryFailed is returned when a query evaluated to a failure. The
// failure message has already been written to the output.
var ErrQueryFailed = errors.New("query failed")

type app struct {
	cfgFile string
	cfg     *config.Config
	engine  *sqlengine.Engine
	doc     *resume.Document
	log     *slog.Logger
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "resumesql",
		Short: "Query a resume with SQL",
		Long: `resumesql evaluates a small SQL dialect against five tables built from a
resume document: projects, skills, experience, education and certifications.

With no subcommand it starts an interactive terminal.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.repl(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	pf.String("resume-path", "", "resume document (.json, .yaml); empty uses the built-in one")
	pf.StringP("format", "o", "", "output format (table|json|csv|markdown|html)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")

	_ = root.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(terminal.Formats))
		for i, f := range terminal.Formats {
			names[i] = string(f)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		a.newQueryCmd(),
		a.newReplCmd(),
		a.newTablesCmd(),
		a.newDescribeCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(cmd.ErrOrStderr(), logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	doc, err := resume.Load(cfg.ResumePath)
	if err != nil {
		return err
	}
	a.doc = doc
	a.engine = sqlengine.New(doc)
	a.log.Debug("resume loaded", "path", cfg.ResumePath, "config", cfg.File)
	return nil
}

func (a *app) format() terminal.Format {
	f, err := terminal.ParseFormat(a.cfg.Format)
	if err != nil {
		return terminal.FormatTable
	}
	return f
}

// run evaluates query and writes the result to w.
func (a *app) run(w io.Writer, query string) error {
	res := a.engine.Evaluate(query)
	a.log.Debug("query evaluated", "query", query, "success", res.Success, "rows", len(res.Data))
	if err := terminal.Render(w, res, a.format()); err != nil {
		return err
	}
	if !res.Success {
		return ErrQueryFailed
	}
	return nil
}

func (a *app) newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>...",
		Short: "Evaluate one query",
		Long:  "Evaluate one query. The arguments are joined with spaces; a single \"-\" reads the query from stdin.",
		Example: `  resumesql query "SELECT name, proficiency FROM skills WHERE proficiency > 85;"
  echo "SHOW TABLES;" | resumesql query -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if len(args) == 1 && args[0] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read query from stdin: %w", err)
				}
				query = string(b)
			}
			return a.run(cmd.OutOrStdout(), query)
		},
	}
}

func (a *app) newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.repl(cmd)
		},
	}
}

func (a *app) repl(cmd *cobra.Command) error {
	s := terminal.NewSession(a.engine, cmd.OutOrStdout(), a.format())
	s.OnQuery = func(query string, res sqlengine.Result) {
		a.log.Debug("query evaluated", "query", query, "success", res.Success, "rows", len(res.Data))
	}
	return terminal.RunREPL(s, terminal.REPLConfig{
		HistoryFile: a.historyFile(),
		Owner:       a.doc.Personal.Name,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	})
}

func (a *app) historyFile() string {
	if a.cfg.HistoryFile != "" {
		return a.cfg.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".resumesql_history")
}

func (a *app) newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.OutOrStdout(), "SHOW TABLES")
		},
	}
}

func (a *app) newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "describe <table>",
		Aliases: []string{"schema"},
		Short:   "Show the columns of a table",
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, len(terminal.Tables))
			for i, t := range terminal.Tables {
				names[i] = t.Name
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.OutOrStdout(), "DESCRIBE "+args[0])
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "resumesql %s\n", Version)
			return err
		},
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrQueryFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}
