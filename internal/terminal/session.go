package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/Zachkp/resume-terminal/internal/sqlengine"
)

const (
	Prompt          = "portfolio_db> "
	ContinuePrompt  = "         ...> "
	clearScreen     = "\033[H\033[2J"
	unknownCmdHint  = "(type .help for commands)"
	schemaUsageText = "Usage: .schema <table>"
)

const helpText = `Commands:
  .help            Show this help message
  .tables          List all tables
  .schema <table>  Show the columns of a table
  .format [name]   Show or set the output format (table, json, csv, markdown, html)
  .samples         Show sample queries
  .clear           Clear the screen
  .quit / .exit    Leave the terminal

SQL statements end with a semicolon (;) and may span several lines.`

// Session is the line-oriented state of one interactive terminal. It is
// not safe for concurrent use.
type Session struct {
	engine *sqlengine.Engine
	out    *Renderer
	w      io.Writer
	format Format
	buf    strings.Builder

	// OnQuery, when set, is called after every evaluated statement.
	OnQuery func(query string, res sqlengine.Result)
}

func NewSession(engine *sqlengine.Engine, w io.Writer, format Format) *Session {
	if format == "" {
		format = FormatTable
	}
	return &Session{engine: engine, out: NewRenderer(w), w: w, format: format}
}

func (s *Session) Format() Format { return s.format }

// Prompt returns the prompt for the next line.
func (s *Session) Prompt() string {
	if s.buf.Len() > 0 {
		return ContinuePrompt
	}
	return Prompt
}

// Pending reports whether a statement is partially entered.
func (s *Session) Pending() bool { return s.buf.Len() > 0 }

// Reset discards a partially entered statement.
func (s *Session) Reset() { s.buf.Reset() }

// Welcome prints the banner.
func (s *Session) Welcome(owner string) {
	fmt.Fprintln(s.w, s.out.title.Render(WelcomeMessage(owner)))
	fmt.Fprintln(s.w)
	fmt.Fprintln(s.w, s.out.noteS.Render("Type .help for commands, .quit to exit"))
}

// Handle processes one input line and reports whether the session should
// end. Dot-commands are only recognised at the start of a statement.
func (s *Session) Handle(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.command(line)
	}

	if s.buf.Len() > 0 {
		s.buf.WriteByte(' ')
	}
	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		return false, nil
	}

	query := s.buf.String()
	s.buf.Reset()
	return false, s.Run(query)
}

// Run evaluates query and renders the result in the current format.
func (s *Session) Run(query string) error {
	res := s.engine.Evaluate(query)
	if s.OnQuery != nil {
		s.OnQuery(query, res)
	}
	return s.out.Render(res, s.format)
}

func (s *Session) command(line string) (bool, error) {
	parts := strings.Fields(line)
	name := strings.ToLower(parts[0])

	switch name {
	case ".quit", ".exit":
		return true, nil

	case ".help":
		_, err := fmt.Fprintln(s.w, helpText)
		return false, err

	case ".tables":
		return false, s.Run("SHOW TABLES")

	case ".schema":
		if len(parts) < 2 {
			return false, s.out.Error(schemaUsageText)
		}
		return false, s.Run("DESCRIBE " + parts[1])

	case ".format":
		if len(parts) < 2 {
			return false, s.out.Note("Output format: " + string(s.format))
		}
		f, err := ParseFormat(parts[1])
		if err != nil {
			return false, s.out.Error(err.Error())
		}
		s.format = f
		return false, s.out.Note("Output format: " + string(f))

	case ".samples":
		for _, q := range SampleQueries {
			if _, err := fmt.Fprintln(s.w, s.out.accent.Render(q)); err != nil {
				return false, err
			}
		}
		return false, nil

	case ".clear":
		_, err := io.WriteString(s.w, clearScreen)
		return false, err

	default:
		return false, s.out.Error(fmt.Sprintf("Unknown command: %s %s", name, unknownCmdHint))
	}
}

// Completions lists the words offered by tab completion.
func Completions() []string {
	words := []string{".help", ".tables", ".schema", ".format", ".samples", ".clear", ".quit", ".exit"}
	words = append(words, "SELECT", "FROM", "WHERE", "ORDER BY", "LIMIT", "SHOW TABLES", "DESCRIBE", "COUNT(*)")
	for _, t := range Tables {
		words = append(words, t.Name)
	}
	return words
}
