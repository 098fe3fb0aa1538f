package terminal

import (
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// REPLConfig configures RunREPL.
type REPLConfig struct {
	HistoryFile string
	Owner       string
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Stderr      io.Writer
}

// RunREPL reads lines from a readline instance until EOF or .quit.
// Interrupt discards a partially entered statement.
func RunREPL(s *Session, cfg REPLConfig) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           cfg.Stdin,
		Stdout:          cfg.Stdout,
		Stderr:          cfg.Stderr,
	})
	if err != nil {
		return fmt.Errorf("initialize REPL: %w", err)
	}
	defer rl.Close()

	s.Welcome(cfg.Owner)
	for {
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}

		quit, err := s.Handle(line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func newCompleter() *readline.PrefixCompleter {
	words := Completions()
	items := make([]readline.PrefixCompleterInterface, len(words))
	for i, w := range words {
		items[i] = readline.PcItem(w)
	}
	return readline.NewPrefixCompleter(items...)
}
