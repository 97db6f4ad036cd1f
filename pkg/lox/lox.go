// Package lox drives the interpreter pipeline: scan, parse, resolve and
// interpret. A Session keeps one interpreter alive so that consecutive
// runs share globals, as in a REPL.
package lox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/diag"
	"github.com/lemonberrylabs/glox/pkg/parser"
	"github.com/lemonberrylabs/glox/pkg/resolver"
	"github.com/lemonberrylabs/glox/pkg/runtime"
	"github.com/lemonberrylabs/glox/pkg/scanner"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// Stage identifies where a run stopped.
type Stage int

const (
	StageNone Stage = iota // the run completed
	StageScan
	StageParse
	StageResolve
	StageRuntime
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageScan:
		return "scan"
	case StageParse:
		return "parse"
	case StageResolve:
		return "resolve"
	case StageRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Result describes the outcome of Session.Run.
type Result struct {
	Stage       Stage
	Diagnostics []diag.Diagnostic   // static errors, set for scan/parse/resolve
	RuntimeErr  *types.RuntimeError // set for StageRuntime
	Err         error               // context error when the run was cancelled
}

// OK reports whether the run completed without errors.
func (r Result) OK() bool {
	return r.Stage == StageNone && r.Err == nil
}

// Static reports whether the run was rejected before execution.
func (r Result) Static() bool {
	return r.Stage == StageScan || r.Stage == StageParse || r.Stage == StageResolve
}

// Error returns the failure as an error value, or nil on success.
func (r Result) Error() error {
	switch {
	case r.Err != nil:
		return r.Err
	case r.RuntimeErr != nil:
		return r.RuntimeErr
	case len(r.Diagnostics) > 0:
		return diag.Error(r.Diagnostics)
	}
	return nil
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where print statements write. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithErrorOutput sets where diagnostics and runtime errors are written.
// Defaults to os.Stderr; pass io.Discard to silence them.
func WithErrorOutput(w io.Writer) Option {
	return func(s *Session) { s.errOut = w }
}

// WithLogger sets the logger passed to the interpreter.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMaxCallDepth limits nested calls. See runtime.WithMaxCallDepth.
func WithMaxCallDepth(n int) Option {
	return func(s *Session) { s.maxCallDepth = n }
}

// WithMaxSteps limits the statements executed per run. Zero is unlimited.
func WithMaxSteps(n int) Option {
	return func(s *Session) { s.maxSteps = n }
}

// Session runs Lox source against a persistent interpreter.
type Session struct {
	out          io.Writer
	errOut       io.Writer
	logger       *slog.Logger
	maxCallDepth int
	maxSteps     int

	ids    *ast.IDSource
	interp *runtime.Interpreter
}

// NewSession creates a session with a fresh interpreter.
func NewSession(opts ...Option) *Session {
	s := &Session{
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset discards all globals and starts over with a new interpreter.
func (s *Session) Reset() {
	s.ids = &ast.IDSource{}
	s.interp = runtime.New(
		runtime.WithOutput(s.out),
		runtime.WithLogger(s.logger),
		runtime.WithMaxCallDepth(s.maxCallDepth),
		runtime.WithMaxSteps(s.maxSteps),
	)
}

// Define binds a global variable visible to subsequent runs.
func (s *Session) Define(name string, v types.Value) {
	s.interp.Globals().Define(name, v)
}

// Run executes source. Each stage runs only if the previous one reported
// nothing; diagnostics are written to the error output as they arrive.
func (s *Session) Run(ctx context.Context, source string) Result {
	c := diag.NewCollector(s.errOut)

	tokens := scanner.New(source, c).ScanTokens()
	if c.HasErrors() {
		return Result{Stage: StageScan, Diagnostics: c.Diagnostics()}
	}

	c.SetStage(diag.StageParse)
	stmts := parser.New(tokens, c, parser.WithIDs(s.ids)).Parse()
	if c.HasErrors() {
		return Result{Stage: StageParse, Diagnostics: c.Diagnostics()}
	}

	c.SetStage(diag.StageResolve)
	locals := resolver.New(c).Resolve(stmts)
	if c.HasErrors() {
		return Result{Stage: StageResolve, Diagnostics: c.Diagnostics()}
	}

	s.interp.Resolve(locals)
	err := s.interp.Interpret(ctx, stmts)
	if err == nil {
		return Result{Stage: StageNone}
	}

	var rerr *types.RuntimeError
	if errors.As(err, &rerr) {
		fmt.Fprintln(s.errOut, rerr.Report())
		return Result{Stage: StageRuntime, RuntimeErr: rerr}
	}
	s.logger.Warn("run interrupted", "error", err)
	return Result{Stage: StageRuntime, Err: err}
}

// Parse scans and parses source without running it. Diagnostics are
// returned rather than printed.
func Parse(source string) ([]ast.Stmt, []diag.Diagnostic) {
	c := diag.NewCollector(nil)
	tokens := scanner.New(source, c).ScanTokens()
	if c.HasErrors() {
		return nil, c.Diagnostics()
	}
	c.SetStage(diag.StageParse)
	stmts := parser.New(tokens, c).Parse()
	return stmts, c.Diagnostics()
}

// Check runs the static stages (scan, parse, resolve) and returns every
// diagnostic. An empty result means source is runnable.
func Check(source string) []diag.Diagnostic {
	c := diag.NewCollector(nil)
	tokens := scanner.New(source, c).ScanTokens()
	if c.HasErrors() {
		return c.Diagnostics()
	}
	c.SetStage(diag.StageParse)
	stmts := parser.New(tokens, c).Parse()
	if c.HasErrors() {
		return c.Diagnostics()
	}
	c.SetStage(diag.StageResolve)
	resolver.New(c).Resolve(stmts)
	return c.Diagnostics()
}

// Incomplete reports whether diags show that the input simply stopped
// early: a parse error at end of input or an unterminated string. The REPL
// uses it to keep reading lines.
func Incomplete(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Where == " at end" || d.Message == "Unterminated string." {
			return true
		}
	}
	return false
}
