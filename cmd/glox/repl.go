package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lemonberrylabs/glox/pkg/lox"
	"github.com/lemonberrylabs/glox/pkg/printer"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const (
	banner     = "glox REPL. Type :help for commands, :quit to exit."
	promptCont = "... "
)

const replHelp = `Commands:
  :help          show this message
  :quit          leave the REPL
  :load <file>   run a file in the current session
  :ast <code>    print the syntax tree of code without running it
  :reset         discard all definitions
Anything else is run as Lox. Input continues on the next line while a
statement is unfinished.`

// lineReader is the part of *liner.State the REPL loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.repl(cmd.Context())
		},
	}
}

func (a *app) repl(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath(a.cfg.REPL.HistoryFile)
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	return a.loop(ctx, ln, ln.AppendHistory)
}

// historyPath places a relative history file in the home directory.
func historyPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

// loop reads and runs submissions until end of input, :quit or ctx ends.
// Definitions persist across submissions; a failing submission does not
// affect the next one.
func (a *app) loop(ctx context.Context, in lineReader, remember func(string)) error {
	sess := lox.NewSession(a.sessionOptions()...)
	fmt.Fprintln(a.stdout, banner)

	for ctx.Err() == nil {
		code, ok := a.readInput(in)
		if !ok {
			fmt.Fprintln(a.stdout)
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		remember(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := a.command(ctx, sess, trimmed); quit {
				return nil
			}
			continue
		}
		sess.Run(ctx, code)
	}
	return nil
}

// readInput collects one submission, prompting for more lines while the
// parser reports that the input stopped early. It returns false at end of
// input.
func (a *app) readInput(in lineReader) (string, bool) {
	var b strings.Builder

	for {
		prompt := a.cfg.REPL.Prompt
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := in.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.logger.Warn("reading input", "error", err)
			}
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, diags := lox.Parse(src); lox.Incomplete(diags) {
			continue
		}
		return src, true
	}
}

// command handles a colon command and reports whether to leave the REPL.
func (a *app) command(ctx context.Context, sess *lox.Session, input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(a.stdout, replHelp)
	case ":reset":
		sess.Reset()
		fmt.Fprintln(a.stdout, "Session reset.")
	case ":load":
		if arg == "" {
			fmt.Fprintln(a.stderr, "usage: :load <file>")
			break
		}
		src, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintln(a.stderr, "Error:", err)
			break
		}
		sess.Run(ctx, string(src))
	case ":ast":
		stmts, diags := lox.Parse(arg)
		if len(diags) > 0 {
			for _, d := range diags {
				fmt.Fprintln(a.stderr, d)
			}
			break
		}
		fmt.Fprint(a.stdout, printer.Program(stmts))
	default:
		fmt.Fprintf(a.stderr, "Unknown command %s. Type :help for a list.\n", name)
	}
	return false
}
