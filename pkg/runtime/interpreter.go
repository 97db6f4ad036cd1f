package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/resolver"
	"github.com/lemonberrylabs/glox/pkg/token"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// DefaultMaxCallDepth is the call depth at which a program fails with
// "Stack overflow." instead of exhausting the host stack.
const DefaultMaxCallDepth = 512

// Flow says how a statement finished.
type Flow int

const (
	FlowNormal Flow = iota // fall through to the next statement
	FlowReturn             // unwind to the enclosing call with Value
)

// StmtResult is the result of executing a single statement.
type StmtResult struct {
	Flow  Flow
	Value types.Value // return value for FlowReturn
}

var normal = StmtResult{Flow: FlowNormal}

// Interpreter executes resolved Lox programs. Globals and the hop table
// persist across Interpret calls so a REPL can feed it one input at a time.
// An Interpreter is not safe for concurrent use.
type Interpreter struct {
	globals *Environment
	env     *Environment
	locals  map[ast.NodeID]int

	out      io.Writer
	logger   *slog.Logger
	now      func() time.Time
	maxDepth int
	maxSteps int

	depth int
	steps int
	line  int // last line reached, for errors without a token of their own
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets where print statements write. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithMaxCallDepth sets the maximum number of nested calls. Values below
// one select DefaultMaxCallDepth.
func WithMaxCallDepth(n int) Option {
	return func(in *Interpreter) { in.maxDepth = n }
}

// WithMaxSteps limits how many statements one Interpret call may execute.
// Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(in *Interpreter) { in.maxSteps = n }
}

// WithClock replaces the time source behind the clock native.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

// New creates an interpreter with the natives defined in its globals.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		globals:  NewEnvironment(),
		locals:   make(map[ast.NodeID]int),
		out:      os.Stdout,
		logger:   slog.Default(),
		now:      time.Now,
		maxDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.maxDepth < 1 {
		in.maxDepth = DefaultMaxCallDepth
	}
	in.env = in.globals
	defineNatives(in.globals)
	return in
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Resolve merges a hop table produced by the resolver.
func (in *Interpreter) Resolve(locals resolver.Locals) {
	for id, hops := range locals {
		in.locals[id] = hops
	}
}

// Interpret executes stmts in order. It stops at the first runtime error,
// which is returned as a *types.RuntimeError, or when ctx is done, in
// which case ctx.Err() is returned.
func (in *Interpreter) Interpret(ctx context.Context, stmts []ast.Stmt) error {
	in.steps = 0
	in.depth = 0
	in.env = in.globals

	start := time.Now()
	in.logger.Debug("interpret start", "statements", len(stmts))
	for _, stmt := range stmts {
		if _, err := in.execute(ctx, stmt); err != nil {
			in.env = in.globals
			in.logger.Debug("interpret stopped", "error", err, "steps", in.steps)
			return err
		}
	}
	in.logger.Debug("interpret done", "steps", in.steps, "duration", time.Since(start))
	return nil
}

// execute runs one statement.
func (in *Interpreter) execute(ctx context.Context, stmt ast.Stmt) (StmtResult, error) {
	select {
	case <-ctx.Done():
		return StmtResult{}, ctx.Err()
	default:
	}

	in.steps++
	if in.maxSteps > 0 && in.steps > in.maxSteps {
		return StmtResult{}, types.NewResourceLimitError(
			token.Token{Line: in.line},
			fmt.Sprintf("Execution exceeded maximum step limit of %d.", in.maxSteps))
	}

	return ast.AcceptStmt[StmtResult](stmt, visitor{in, ctx})
}

// visitor carries the context of one Interpret call through the node
// visits.
type visitor struct {
	*Interpreter
	ctx context.Context
}

var (
	_ ast.StmtVisitor[StmtResult]  = visitor{}
	_ ast.ExprVisitor[types.Value] = visitor{}
)

func (v visitor) VisitExpression(n *ast.Expression) (StmtResult, error) {
	_, err := v.evaluate(v.ctx, n.Expression)
	return normal, err
}

func (v visitor) VisitPrint(n *ast.Print) (StmtResult, error) {
	value, err := v.evaluate(v.ctx, n.Expression)
	if err != nil {
		return normal, err
	}
	fmt.Fprintln(v.out, value.String())
	return normal, nil
}

func (v visitor) VisitVar(n *ast.Var) (StmtResult, error) {
	v.line = n.Name.Line
	value := types.Nil
	if n.Initializer != nil {
		result, err := v.evaluate(v.ctx, n.Initializer)
		if err != nil {
			return normal, err
		}
		value = result
	}
	v.env.Define(n.Name.Lexeme, value)
	return normal, nil
}

func (v visitor) VisitBlock(n *ast.Block) (StmtResult, error) {
	return v.executeBlock(v.ctx, n.Statements, v.env.NewChild())
}

func (v visitor) VisitIf(n *ast.If) (StmtResult, error) {
	cond, err := v.evaluate(v.ctx, n.Condition)
	if err != nil {
		return normal, err
	}
	if cond.Truthy() {
		return v.execute(v.ctx, n.ThenBranch)
	}
	if n.ElseBranch != nil {
		return v.execute(v.ctx, n.ElseBranch)
	}
	return normal, nil
}

func (v visitor) VisitWhile(n *ast.While) (StmtResult, error) {
	for {
		cond, err := v.evaluate(v.ctx, n.Condition)
		if err != nil {
			return normal, err
		}
		if !cond.Truthy() {
			return normal, nil
		}
		result, err := v.execute(v.ctx, n.Body)
		if err != nil || result.Flow == FlowReturn {
			return result, err
		}
	}
}

func (v visitor) VisitFunction(n *ast.Function) (StmtResult, error) {
	v.line = n.Name.Line
	fn := NewFunction(n, v.env, false)
	v.env.Define(n.Name.Lexeme, types.NewObject(fn))
	return normal, nil
}

func (v visitor) VisitReturn(n *ast.Return) (StmtResult, error) {
	v.line = n.Keyword.Line
	value := types.Nil
	if n.Value != nil {
		result, err := v.evaluate(v.ctx, n.Value)
		if err != nil {
			return normal, err
		}
		value = result
	}
	return StmtResult{Flow: FlowReturn, Value: value}, nil
}

func (v visitor) VisitClass(n *ast.Class) (StmtResult, error) {
	return normal, v.executeClass(v.ctx, n)
}

// executeBlock runs stmts in env and restores the previous environment on
// every exit path.
func (in *Interpreter) executeBlock(ctx context.Context, stmts []ast.Stmt, env *Environment) (StmtResult, error) {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		result, err := in.execute(ctx, stmt)
		if err != nil || result.Flow == FlowReturn {
			return result, err
		}
	}
	return normal, nil
}

func (in *Interpreter) executeClass(ctx context.Context, n *ast.Class) error {
	in.line = n.Name.Line

	// The name is bound first so the methods can refer to it. A bad
	// superclass leaves it bound to nil.
	in.env.Define(n.Name.Lexeme, types.Nil)

	var superclass *Class
	if n.Superclass != nil {
		v, err := in.evaluate(ctx, n.Superclass)
		if err != nil {
			return err
		}
		sc, ok := v.AsObject().(*Class)
		if !ok {
			return types.NewTypeError(n.Superclass.Name, "Superclass must be a class.")
		}
		superclass = sc
	}

	env := in.env
	if superclass != nil {
		env = env.NewChild()
		env.Define("super", types.NewObject(superclass))
	}

	methods := make(map[string]*Function, len(n.Methods))
	for _, m := range n.Methods {
		methods[m.Name.Lexeme] = NewFunction(m, env, m.Name.Lexeme == "init")
	}

	class := NewClass(n.Name.Lexeme, superclass, methods)
	in.env.Define(n.Name.Lexeme, types.NewObject(class))
	in.logger.Debug("class defined", "name", class.Name, "methods", len(methods), "superclass", superclass != nil)
	return nil
}

// call invokes callee with the depth limit applied.
func (in *Interpreter) call(ctx context.Context, callee Callable, paren token.Token, args []types.Value) (types.Value, error) {
	if in.depth >= in.maxDepth {
		return types.Nil, types.NewRecursionError(paren)
	}
	in.depth++
	defer func() { in.depth-- }()

	return callee.Call(ctx, in, args)
}
