package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lemonberrylabs/glox/pkg/lox"
	"github.com/lemonberrylabs/glox/pkg/printer"
	"github.com/lemonberrylabs/glox/pkg/runner"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a Lox source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argument, _ := cmd.Flags().GetString("argument")
			return a.runFile(cmd.Context(), args[0], argument)
		},
	}
	cmd.Flags().String("argument", "", "Value bound to the global 'argument'")
	return cmd
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the syntax tree of a Lox source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.parseFile(args[0])
		},
	}
}

// runFile executes one file in a fresh session. Diagnostics and runtime
// errors have already been written to stderr by the session.
func (a *app) runFile(ctx context.Context, path, argument string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	sess := lox.NewSession(a.sessionOptions()...)
	sess.Define(runner.ArgumentGlobal, runner.ArgumentValue(argument))
	res := sess.Run(ctx, string(src))
	switch {
	case res.OK():
		return nil
	case res.Static():
		return &exitError{code: exitStatic}
	default:
		if res.Err != nil {
			fmt.Fprintln(a.stderr, "Interrupted:", res.Err)
		}
		return &exitError{code: exitRuntime}
	}
}

func (a *app) parseFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	stmts, diags := lox.Parse(string(src))
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(a.stderr, d)
		}
		return &exitError{code: exitStatic}
	}
	fmt.Fprint(a.stdout, printer.Program(stmts))
	return nil
}
