package printer

import (
	"testing"

	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/token"
)

func tok(tt token.Type, lexeme string) token.Token {
	return token.Token{Type: tt, Lexeme: lexeme, Line: 1}
}

func TestExpr(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		want string
	}{
		{
			"nested binary",
			&ast.Binary{
				Left:     &ast.Unary{Operator: tok(token.Minus, "-"), Right: &ast.Literal{Value: 123.0}},
				Operator: tok(token.Star, "*"),
				Right:    &ast.Grouping{Expression: &ast.Literal{Value: 45.67}},
			},
			"(* (- 123.0) (group 45.67))",
		},
		{"nil", &ast.Literal{Value: nil}, "nil"},
		{"bool", &ast.Literal{Value: false}, "false"},
		{"string", &ast.Literal{Value: "hi"}, "hi"},
		{"large integral", &ast.Literal{Value: 1e21}, "1e+21"},
		{"this", &ast.This{Keyword: tok(token.This, "this")}, "this"},
		{"super", &ast.Super{Keyword: tok(token.Super, "super"), Method: tok(token.Identifier, "m")}, "(super m)"},
		{
			"call without args",
			&ast.Call{Callee: &ast.Variable{Name: tok(token.Identifier, "f")}},
			"(call f)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expr(tt.expr); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// TestEveryVariantHandled renders one of each node type.
func TestEveryVariantHandled(t *testing.T) {
	name := tok(token.Identifier, "x")
	lit := &ast.Literal{Value: 1.0}
	v := &ast.Variable{Name: name}

	exprs := []ast.Expr{
		lit, &ast.Grouping{Expression: lit}, &ast.Unary{Operator: tok(token.Bang, "!"), Right: lit},
		&ast.Binary{Left: lit, Operator: tok(token.Plus, "+"), Right: lit},
		&ast.Logical{Left: lit, Operator: tok(token.Or, "or"), Right: lit},
		v, &ast.Assign{Name: name, Value: lit}, &ast.Call{Callee: v},
		&ast.Get{Object: v, Name: name}, &ast.Set{Object: v, Name: name, Value: lit},
		&ast.This{}, &ast.Super{Method: name},
	}
	for _, e := range exprs {
		if Expr(e) == "" {
			t.Errorf("%T rendered empty", e)
		}
	}

	fn := &ast.Function{Name: name}
	stmts := []ast.Stmt{
		&ast.Expression{Expression: lit}, &ast.Print{Expression: lit}, &ast.Var{Name: name},
		&ast.Block{}, &ast.If{Condition: lit, ThenBranch: &ast.Block{}},
		&ast.While{Condition: lit, Body: &ast.Block{}}, fn, &ast.Return{},
		&ast.Class{Name: name, Superclass: v, Methods: []*ast.Function{fn}},
	}
	for _, s := range stmts {
		if Stmt(s) == "" {
			t.Errorf("%T rendered empty", s)
		}
	}
}

func TestProgram(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Var{Name: tok(token.Identifier, "a"), Initializer: &ast.Literal{Value: 1.0}},
		&ast.Print{Expression: &ast.Variable{Name: tok(token.Identifier, "a")}},
	}
	want := "(var a 1.0)\n(print a)\n"
	if got := Program(stmts); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
