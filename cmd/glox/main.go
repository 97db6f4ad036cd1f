// Package main is the entry point for the glox command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/glox/pkg/config"
	"github.com/lemonberrylabs/glox/pkg/lox"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes for rejected and failing programs.
const (
	exitStatic  = 65
	exitRuntime = 70
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds state shared by all commands once flags are parsed.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "glox [file]",
		Short:         "Lox interpreter, REPL and script host",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.runFile(cmd.Context(), args[0], "")
			}
			return a.repl(cmd.Context())
		},
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("glox version {{.Version}}\n")
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file (env GLOX_CONFIG)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (env GLOX_LOG_LEVEL)")
	pf.Int("max-call-depth", 0, "Maximum call nesting before 'Stack overflow.' (default 512)")
	pf.Int("max-steps", -1, "Maximum statements per run, 0 for unlimited")

	root.AddCommand(
		newRunCmd(a),
		newReplCmd(a),
		newParseCmd(a),
		newServeCmd(a),
		newRemoteCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger. Precedence is flag,
// then environment, then config file, then built-in default.
func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("GLOX_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetInt("max-call-depth"); v > 0 {
		cfg.Interpreter.MaxCallDepth = v
	}
	if v, _ := cmd.Flags().GetInt("max-steps"); v >= 0 {
		cfg.Interpreter.MaxSteps = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// sessionOptions returns the interpreter settings for local runs.
func (a *app) sessionOptions() []lox.Option {
	return []lox.Option{
		lox.WithOutput(a.stdout),
		lox.WithErrorOutput(a.stderr),
		lox.WithLogger(a.logger),
		lox.WithMaxCallDepth(a.cfg.Interpreter.MaxCallDepth),
		lox.WithMaxSteps(a.cfg.Interpreter.MaxSteps),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	code := execute(ctx, a, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	var exit *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		return exit.code
	default:
		fmt.Fprintln(a.stderr, "Error:", err)
		return 1
	}
}
