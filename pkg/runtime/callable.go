package runtime

import (
	"context"
	"time"

	"github.com/lemonberrylabs/glox/pkg/types"
)

// Callable is a value that can appear as the callee of a call expression.
type Callable interface {
	types.Object

	// Arity is the exact number of arguments Call expects.
	Arity() int

	// Call invokes the callable. len(args) == Arity() is checked by the
	// interpreter beforehand.
	Call(ctx context.Context, in *Interpreter, args []types.Value) (types.Value, error)
}

// NativeFunc is the Go implementation behind a native function.
type NativeFunc func(ctx context.Context, in *Interpreter, args []types.Value) (types.Value, error)

// Native is a function implemented in Go.
type Native struct {
	name  string
	arity int
	fn    NativeFunc
}

// NewNative creates a native function. name is used only for logging.
func NewNative(name string, arity int, fn NativeFunc) *Native {
	return &Native{name: name, arity: arity, fn: fn}
}

func (n *Native) Kind() types.Kind { return types.KindCallable }
func (n *Native) String() string   { return "<native fn>" }
func (n *Native) Name() string     { return n.name }
func (n *Native) Arity() int       { return n.arity }

func (n *Native) Call(ctx context.Context, in *Interpreter, args []types.Value) (types.Value, error) {
	return n.fn(ctx, in, args)
}

// defineNatives installs the built-in functions into env.
func defineNatives(env *Environment) {
	env.Define("clock", types.NewObject(NewNative("clock", 0, clock)))
}

// clock returns the seconds since the Unix epoch as a number.
func clock(_ context.Context, in *Interpreter, _ []types.Value) (types.Value, error) {
	now := in.now()
	return types.NewNumber(float64(now.UnixNano()) / float64(time.Second)), nil
}
