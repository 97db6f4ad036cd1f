// Package ast defines the Abstract Syntax Tree produced by the parser.
// Nodes are created once per parse and never modified afterwards; the
// resolver and interpreter only read them.
package ast

import "github.com/lemonberrylabs/glox/pkg/token"

// NodeID identifies an expression node that the resolver can annotate.
// IDs are unique within an IDSource, so a REPL session that parses many
// inputs shares one source.
type NodeID int

// IDSource hands out increasing node IDs.
type IDSource struct {
	last NodeID
}

// Next returns a fresh ID.
func (s *IDSource) Next() NodeID {
	s.last++
	return s.last
}

// Expr is the interface for all expression nodes. Passes over
// expressions implement ExprVisitor and dispatch with AcceptExpr.
type Expr interface {
	accept(d exprDispatcher)
}

// Stmt is the interface for all statement nodes. Passes over statements
// implement StmtVisitor and dispatch with AcceptStmt.
type Stmt interface {
	accept(d stmtDispatcher)
}

// --- Expressions ---

// Literal is a number, string, boolean or nil constant.
type Literal struct {
	Value any // float64, string, bool or nil
}

// Grouping is a parenthesized expression.
type Grouping struct {
	Expression Expr
}

// Unary is a prefix operation (e.g., -x, !x).
type Unary struct {
	Operator token.Token
	Right    Expr
}

// Binary is an arithmetic, comparison or equality operation.
type Binary struct {
	Left     Expr
	Operator token.Token
	Right    Expr
}

// Logical is a short-circuiting "and" / "or".
type Logical struct {
	Left     Expr
	Operator token.Token
	Right    Expr
}

// Variable is a read of a named variable.
type Variable struct {
	ID   NodeID
	Name token.Token
}

// Assign stores into a named variable.
type Assign struct {
	ID    NodeID
	Name  token.Token
	Value Expr
}

// Call is a function, method or class invocation.
type Call struct {
	Callee    Expr
	Paren     token.Token // closing paren, used for error location
	Arguments []Expr
}

// Get reads a property (obj.name).
type Get struct {
	Object Expr
	Name   token.Token
}

// Set writes a property (obj.name = value).
type Set struct {
	Object Expr
	Name   token.Token
	Value  Expr
}

// This is the "this" keyword inside a method.
type This struct {
	ID      NodeID
	Keyword token.Token
}

// Super is a superclass method reference (super.method).
type Super struct {
	ID      NodeID
	Keyword token.Token
	Method  token.Token
}

// --- Statements ---

// Expression evaluates an expression for its side effects.
type Expression struct {
	Expression Expr
}

// Print evaluates an expression and writes it to the output.
type Print struct {
	Expression Expr
}

// Var declares a variable with an optional initializer.
type Var struct {
	Name        token.Token
	Initializer Expr // nil when absent
}

// Block is a braced list of statements with its own scope.
type Block struct {
	Statements []Stmt
}

// If is a conditional with an optional else branch.
type If struct {
	Condition  Expr
	ThenBranch Stmt
	ElseBranch Stmt // nil when absent
}

// While loops while the condition is truthy. "for" loops are desugared into While.
type While struct {
	Condition Expr
	Body      Stmt
}

// Function declares a named function or a method.
type Function struct {
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

// Return leaves the enclosing function with an optional value.
type Return struct {
	Keyword token.Token
	Value   Expr // nil when absent
}

// Class declares a class with an optional superclass.
type Class struct {
	Name       token.Token
	Superclass *Variable // nil when absent
	Methods    []*Function
}
