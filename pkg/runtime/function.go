package runtime

import (
	"context"

	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// Function is a user-defined function or method together with the
// environment it closes over.
type Function struct {
	decl          *ast.Function
	closure       *Environment
	isInitializer bool
}

// NewFunction creates a closure over env.
func NewFunction(decl *ast.Function, env *Environment, isInitializer bool) *Function {
	return &Function{decl: decl, closure: env, isInitializer: isInitializer}
}

func (f *Function) Kind() types.Kind { return types.KindCallable }
func (f *Function) String() string   { return "<fn " + f.decl.Name.Lexeme + ">" }
func (f *Function) Arity() int       { return len(f.decl.Params) }

// Bind returns a copy of the method whose closure defines "this" as inst.
func (f *Function) Bind(inst *Instance) *Function {
	env := f.closure.NewChild()
	env.Define("this", types.NewObject(inst))
	return &Function{decl: f.decl, closure: env, isInitializer: f.isInitializer}
}

// Call runs the body in a fresh environment holding the parameters.
// An initializer always yields its instance, even after a bare return.
func (f *Function) Call(ctx context.Context, in *Interpreter, args []types.Value) (types.Value, error) {
	env := f.closure.NewChild()
	for i, param := range f.decl.Params {
		env.Define(param.Lexeme, args[i])
	}

	result, err := in.executeBlock(ctx, f.decl.Body, env)
	if err != nil {
		return types.Nil, err
	}

	if f.isInitializer {
		return f.closure.GetAt(0, "this"), nil
	}
	if result.Flow == FlowReturn {
		return result.Value, nil
	}
	return types.Nil, nil
}
