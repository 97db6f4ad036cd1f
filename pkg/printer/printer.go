// Package printer renders Lox AST nodes as fully parenthesized prefix
// text. It is a debugging aid used by the parse command and the REPL.
package printer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/glox/pkg/ast"
)

// Program renders each statement on its own line.
func Program(stmts []ast.Stmt) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(Stmt(s))
		b.WriteByte('\n')
	}
	return b.String()
}

// Expr renders a single expression.
func Expr(e ast.Expr) string {
	s, _ := ast.AcceptExpr[string](e, render{})
	return s
}

// Stmt renders a single statement.
func Stmt(s ast.Stmt) string {
	out, _ := ast.AcceptStmt[string](s, render{})
	return out
}

// render never fails; the error results only satisfy the visitor shape.
type render struct{}

var (
	_ ast.ExprVisitor[string] = render{}
	_ ast.StmtVisitor[string] = render{}
)

func (render) VisitLiteral(n *ast.Literal) (string, error) {
	return literal(n.Value), nil
}

func (render) VisitGrouping(n *ast.Grouping) (string, error) {
	return parens("group", Expr(n.Expression)), nil
}

func (render) VisitUnary(n *ast.Unary) (string, error) {
	return parens(n.Operator.Lexeme, Expr(n.Right)), nil
}

func (render) VisitBinary(n *ast.Binary) (string, error) {
	return parens(n.Operator.Lexeme, Expr(n.Left), Expr(n.Right)), nil
}

func (render) VisitLogical(n *ast.Logical) (string, error) {
	return parens(n.Operator.Lexeme, Expr(n.Left), Expr(n.Right)), nil
}

func (render) VisitVariable(n *ast.Variable) (string, error) {
	return n.Name.Lexeme, nil
}

func (render) VisitAssign(n *ast.Assign) (string, error) {
	return parens("=", n.Name.Lexeme, Expr(n.Value)), nil
}

func (render) VisitCall(n *ast.Call) (string, error) {
	parts := []string{Expr(n.Callee)}
	for _, arg := range n.Arguments {
		parts = append(parts, Expr(arg))
	}
	return parens("call", parts...), nil
}

func (render) VisitGet(n *ast.Get) (string, error) {
	return parens(".", Expr(n.Object), n.Name.Lexeme), nil
}

func (render) VisitSet(n *ast.Set) (string, error) {
	return parens("=", Expr(n.Object), n.Name.Lexeme, Expr(n.Value)), nil
}

func (render) VisitThis(*ast.This) (string, error) {
	return "this", nil
}

func (render) VisitSuper(n *ast.Super) (string, error) {
	return parens("super", n.Method.Lexeme), nil
}

func (render) VisitExpression(n *ast.Expression) (string, error) {
	return parens(";", Expr(n.Expression)), nil
}

func (render) VisitPrint(n *ast.Print) (string, error) {
	return parens("print", Expr(n.Expression)), nil
}

func (render) VisitVar(n *ast.Var) (string, error) {
	if n.Initializer == nil {
		return parens("var", n.Name.Lexeme), nil
	}
	return parens("var", n.Name.Lexeme, Expr(n.Initializer)), nil
}

func (render) VisitBlock(n *ast.Block) (string, error) {
	return parens("block", stmts(n.Statements)...), nil
}

func (render) VisitIf(n *ast.If) (string, error) {
	if n.ElseBranch == nil {
		return parens("if", Expr(n.Condition), Stmt(n.ThenBranch)), nil
	}
	return parens("if", Expr(n.Condition), Stmt(n.ThenBranch), Stmt(n.ElseBranch)), nil
}

func (render) VisitWhile(n *ast.While) (string, error) {
	return parens("while", Expr(n.Condition), Stmt(n.Body)), nil
}

func (render) VisitFunction(n *ast.Function) (string, error) {
	return function(n), nil
}

func (render) VisitReturn(n *ast.Return) (string, error) {
	if n.Value == nil {
		return "(return)", nil
	}
	return parens("return", Expr(n.Value)), nil
}

func (render) VisitClass(n *ast.Class) (string, error) {
	parts := []string{n.Name.Lexeme}
	if n.Superclass != nil {
		parts = append(parts, "<", n.Superclass.Name.Lexeme)
	}
	for _, m := range n.Methods {
		parts = append(parts, function(m))
	}
	return parens("class", parts...), nil
}

func function(fn *ast.Function) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Lexeme
	}
	parts := append([]string{fn.Name.Lexeme, "(" + strings.Join(params, " ") + ")"}, stmts(fn.Body)...)
	return parens("fun", parts...)
}

func stmts(list []ast.Stmt) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = Stmt(s)
	}
	return out
}

func parens(name string, parts ...string) string {
	if len(parts) == 0 {
		return "(" + name + ")"
	}
	return "(" + name + " " + strings.Join(parts, " ") + ")"
}

// literal formats a literal independently of runtime value printing.
func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		switch {
		case x == math.Trunc(x) && math.Abs(x) < 1e16:
			return strconv.FormatFloat(x, 'f', 1, 64)
		case math.Abs(x) >= 1e-4 && math.Abs(x) < 1e16:
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
