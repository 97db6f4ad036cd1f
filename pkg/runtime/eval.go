package runtime

import (
	"context"
	"fmt"

	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/token"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// evaluate computes the value of an expression.
func (in *Interpreter) evaluate(ctx context.Context, expr ast.Expr) (types.Value, error) {
	return ast.AcceptExpr[types.Value](expr, visitor{in, ctx})
}

func (v visitor) VisitLiteral(n *ast.Literal) (types.Value, error) {
	return types.FromLiteral(n.Value), nil
}

func (v visitor) VisitGrouping(n *ast.Grouping) (types.Value, error) {
	return v.evaluate(v.ctx, n.Expression)
}

func (v visitor) VisitUnary(n *ast.Unary) (types.Value, error) {
	return v.evalUnary(v.ctx, n)
}

func (v visitor) VisitBinary(n *ast.Binary) (types.Value, error) {
	return v.evalBinary(v.ctx, n)
}

func (v visitor) VisitLogical(n *ast.Logical) (types.Value, error) {
	left, err := v.evaluate(v.ctx, n.Left)
	if err != nil {
		return types.Nil, err
	}
	if n.Operator.Type == token.Or {
		if left.Truthy() {
			return left, nil
		}
	} else if !left.Truthy() {
		return left, nil
	}
	return v.evaluate(v.ctx, n.Right)
}

func (v visitor) VisitVariable(n *ast.Variable) (types.Value, error) {
	v.line = n.Name.Line
	return v.lookUp(n.ID, n.Name)
}

func (v visitor) VisitAssign(n *ast.Assign) (types.Value, error) {
	value, err := v.evaluate(v.ctx, n.Value)
	if err != nil {
		return types.Nil, err
	}
	v.line = n.Name.Line
	if hops, ok := v.locals[n.ID]; ok {
		v.env.AssignAt(hops, n.Name.Lexeme, value)
		return value, nil
	}
	if err := v.globals.Assign(n.Name, value); err != nil {
		return types.Nil, err
	}
	return value, nil
}

func (v visitor) VisitCall(n *ast.Call) (types.Value, error) {
	return v.evalCall(v.ctx, n)
}

func (v visitor) VisitGet(n *ast.Get) (types.Value, error) {
	obj, err := v.evaluate(v.ctx, n.Object)
	if err != nil {
		return types.Nil, err
	}
	v.line = n.Name.Line
	inst, ok := obj.AsObject().(*Instance)
	if !ok {
		return types.Nil, types.NewTypeError(n.Name, "Only instances have properties.")
	}
	return inst.Get(n.Name)
}

func (v visitor) VisitSet(n *ast.Set) (types.Value, error) {
	obj, err := v.evaluate(v.ctx, n.Object)
	if err != nil {
		return types.Nil, err
	}
	v.line = n.Name.Line
	inst, ok := obj.AsObject().(*Instance)
	if !ok {
		return types.Nil, types.NewTypeError(n.Name, "Only instances have fields.")
	}
	value, err := v.evaluate(v.ctx, n.Value)
	if err != nil {
		return types.Nil, err
	}
	inst.Set(n.Name, value)
	return value, nil
}

func (v visitor) VisitThis(n *ast.This) (types.Value, error) {
	v.line = n.Keyword.Line
	return v.lookUp(n.ID, n.Keyword)
}

func (v visitor) VisitSuper(n *ast.Super) (types.Value, error) {
	v.line = n.Keyword.Line
	return v.evalSuper(n)
}

// lookUp reads a variable through the hop table, falling back to globals.
func (in *Interpreter) lookUp(id ast.NodeID, name token.Token) (types.Value, error) {
	if hops, ok := in.locals[id]; ok {
		return in.env.GetAt(hops, name.Lexeme), nil
	}
	return in.globals.Get(name)
}

func (in *Interpreter) evalUnary(ctx context.Context, n *ast.Unary) (types.Value, error) {
	right, err := in.evaluate(ctx, n.Right)
	if err != nil {
		return types.Nil, err
	}
	in.line = n.Operator.Line

	switch n.Operator.Type {
	case token.Minus:
		f, ok := right.AsNumber()
		if !ok {
			return types.Nil, types.NewTypeError(n.Operator, "Operand of '-' must be a number.")
		}
		return types.NewNumber(-f), nil
	case token.Bang:
		return types.NewBool(!right.Truthy()), nil
	default:
		panic(fmt.Sprintf("runtime: unknown unary operator %s", n.Operator.Type))
	}
}

func (in *Interpreter) evalBinary(ctx context.Context, n *ast.Binary) (types.Value, error) {
	left, err := in.evaluate(ctx, n.Left)
	if err != nil {
		return types.Nil, err
	}
	right, err := in.evaluate(ctx, n.Right)
	if err != nil {
		return types.Nil, err
	}
	op := n.Operator
	in.line = op.Line

	switch op.Type {
	case token.EqualEqual:
		return types.NewBool(left.Equal(right)), nil
	case token.BangEqual:
		return types.NewBool(!left.Equal(right)), nil
	case token.Plus:
		return add(op, left, right)
	}

	l, lok := left.AsNumber()
	r, rok := right.AsNumber()
	if !lok || !rok {
		return types.Nil, types.NewTypeError(op, fmt.Sprintf("Operands of '%s' must be numbers.", op.Lexeme))
	}

	switch op.Type {
	case token.Minus:
		return types.NewNumber(l - r), nil
	case token.Star:
		return types.NewNumber(l * r), nil
	case token.Slash:
		// IEEE-754: x/0 is ±Inf or NaN, not an error.
		return types.NewNumber(l / r), nil
	case token.Greater:
		return types.NewBool(l > r), nil
	case token.GreaterEqual:
		return types.NewBool(l >= r), nil
	case token.Less:
		return types.NewBool(l < r), nil
	case token.LessEqual:
		return types.NewBool(l <= r), nil
	default:
		panic(fmt.Sprintf("runtime: unknown binary operator %s", op.Type))
	}
}

// add implements '+': numeric addition, or concatenation when either side
// is a string.
func add(op token.Token, left, right types.Value) (types.Value, error) {
	l, lok := left.AsNumber()
	r, rok := right.AsNumber()
	if lok && rok {
		return types.NewNumber(l + r), nil
	}
	if left.Kind() == types.KindString || right.Kind() == types.KindString {
		return types.NewString(left.String() + right.String()), nil
	}
	return types.Nil, types.NewTypeError(op, "Operands of '+' must be two numbers or include a string.")
}

func (in *Interpreter) evalCall(ctx context.Context, n *ast.Call) (types.Value, error) {
	callee, err := in.evaluate(ctx, n.Callee)
	if err != nil {
		return types.Nil, err
	}

	args := make([]types.Value, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		v, err := in.evaluate(ctx, a)
		if err != nil {
			return types.Nil, err
		}
		args = append(args, v)
	}
	in.line = n.Paren.Line

	fn, ok := callee.AsObject().(Callable)
	if !ok {
		return types.Nil, types.NewTypeError(n.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return types.Nil, types.NewArityError(n.Paren, fn.Arity(), len(args))
	}
	return in.call(ctx, fn, n.Paren, args)
}

// evalSuper finds the method on the superclass captured at class
// definition and binds it to the current "this", which lives one
// environment closer than "super".
func (in *Interpreter) evalSuper(n *ast.Super) (types.Value, error) {
	hops, ok := in.locals[n.ID]
	if !ok {
		return types.Nil, types.NewRuntimeError(n.Keyword, "Unresolved 'super'.")
	}
	superclass, _ := in.env.GetAt(hops, "super").AsObject().(*Class)
	this, _ := in.env.GetAt(hops-1, "this").AsObject().(*Instance)
	if superclass == nil || this == nil {
		return types.Nil, types.NewRuntimeError(n.Keyword, "Unresolved 'super'.")
	}

	method := superclass.FindMethod(n.Method.Lexeme)
	if method == nil {
		return types.Nil, types.NewPropertyError(n.Method)
	}
	return types.NewObject(method.Bind(this)), nil
}
