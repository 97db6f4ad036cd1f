// Package resolver performs the static pass between parsing and
// interpretation. It computes how many environments separate each local
// variable use from its declaration and rejects misplaced return, this and
// super.
package resolver

import (
	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/diag"
	"github.com/lemonberrylabs/glox/pkg/token"
)

// Locals maps a resolved expression node to its hop distance: the number
// of environments between the use and the one that declares the name.
// Nodes absent from the map refer to globals.
type Locals map[ast.NodeID]int

// FunctionType tracks what kind of function body is being resolved.
type FunctionType int

const (
	FunctionNone FunctionType = iota
	FunctionPlain
	FunctionMethod
	FunctionInitializer
)

// ClassType tracks what kind of class body is being resolved.
type ClassType int

const (
	ClassNone ClassType = iota
	ClassPlain
	ClassSub
)

// scope maps a name to whether its initializer has finished.
type scope map[string]bool

// Resolver walks a program once and fills a Locals table.
type Resolver struct {
	scopes   []scope
	locals   Locals
	fn       FunctionType
	class    ClassType
	reporter diag.Reporter
}

// New creates a resolver that reports problems to reporter.
func New(reporter diag.Reporter) *Resolver {
	return &Resolver{reporter: reporter}
}

// Resolve resolves stmts and returns the hop table. The table is returned
// even when diagnostics were reported; callers must not interpret a
// program that failed to resolve.
func (r *Resolver) Resolve(stmts []ast.Stmt) Locals {
	r.locals = make(Locals)
	r.scopes = r.scopes[:0]
	r.fn = FunctionNone
	r.class = ClassNone
	r.resolveStmts(stmts)
	return r.locals
}

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(s ast.Stmt) {
	ast.AcceptStmt[struct{}](s, walker{r})
}

func (r *Resolver) resolveExpr(e ast.Expr) {
	ast.AcceptExpr[struct{}](e, walker{r})
}

// walker holds the per-node visits so they stay off the exported API.
type walker struct{ *Resolver }

var (
	_ ast.StmtVisitor[struct{}] = walker{}
	_ ast.ExprVisitor[struct{}] = walker{}
)

func (w walker) VisitBlock(n *ast.Block) (struct{}, error) {
	w.beginScope()
	w.resolveStmts(n.Statements)
	w.endScope()
	return struct{}{}, nil
}

func (w walker) VisitVar(n *ast.Var) (struct{}, error) {
	w.declare(n.Name)
	if n.Initializer != nil {
		w.resolveExpr(n.Initializer)
	}
	w.define(n.Name)
	return struct{}{}, nil
}

func (w walker) VisitFunction(n *ast.Function) (struct{}, error) {
	// Defined before the body so the function can recurse.
	w.declare(n.Name)
	w.define(n.Name)
	w.resolveFunction(n, FunctionPlain)
	return struct{}{}, nil
}

func (w walker) VisitClass(n *ast.Class) (struct{}, error) {
	w.resolveClass(n)
	return struct{}{}, nil
}

func (w walker) VisitExpression(n *ast.Expression) (struct{}, error) {
	w.resolveExpr(n.Expression)
	return struct{}{}, nil
}

func (w walker) VisitPrint(n *ast.Print) (struct{}, error) {
	w.resolveExpr(n.Expression)
	return struct{}{}, nil
}

func (w walker) VisitIf(n *ast.If) (struct{}, error) {
	w.resolveExpr(n.Condition)
	w.resolveStmt(n.ThenBranch)
	if n.ElseBranch != nil {
		w.resolveStmt(n.ElseBranch)
	}
	return struct{}{}, nil
}

func (w walker) VisitWhile(n *ast.While) (struct{}, error) {
	w.resolveExpr(n.Condition)
	w.resolveStmt(n.Body)
	return struct{}{}, nil
}

func (w walker) VisitReturn(n *ast.Return) (struct{}, error) {
	if w.fn == FunctionNone {
		w.reporter.ErrorAt(n.Keyword, "Cannot return from top-level code.")
	}
	if n.Value != nil {
		if w.fn == FunctionInitializer {
			w.reporter.ErrorAt(n.Keyword, "Cannot return a value from an initializer.")
		}
		w.resolveExpr(n.Value)
	}
	return struct{}{}, nil
}

func (r *Resolver) resolveClass(n *ast.Class) {
	enclosing := r.class
	r.class = ClassPlain
	defer func() { r.class = enclosing }()

	r.declare(n.Name)
	r.define(n.Name)

	if n.Superclass != nil {
		if n.Superclass.Name.Lexeme == n.Name.Lexeme {
			r.reporter.ErrorAt(n.Superclass.Name, "A class cannot inherit from itself.")
		}
		r.class = ClassSub
		r.resolveExpr(n.Superclass)

		r.beginScope()
		r.peekScope()["super"] = true
		defer r.endScope()
	}

	r.beginScope()
	r.peekScope()["this"] = true
	for _, method := range n.Methods {
		kind := FunctionMethod
		if method.Name.Lexeme == "init" {
			kind = FunctionInitializer
		}
		r.resolveFunction(method, kind)
	}
	r.endScope()
}

// resolveFunction resolves parameters and body in one scope, matching the
// single environment the interpreter creates per call.
func (r *Resolver) resolveFunction(fn *ast.Function, kind FunctionType) {
	enclosing := r.fn
	r.fn = kind
	defer func() { r.fn = enclosing }()

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

func (w walker) VisitVariable(n *ast.Variable) (struct{}, error) {
	if len(w.scopes) > 0 {
		if ready, ok := w.peekScope()[n.Name.Lexeme]; ok && !ready {
			w.reporter.ErrorAt(n.Name, "Cannot read local variable in its own initializer.")
		}
	}
	w.resolveLocal(n.ID, n.Name)
	return struct{}{}, nil
}

func (w walker) VisitAssign(n *ast.Assign) (struct{}, error) {
	w.resolveExpr(n.Value)
	w.resolveLocal(n.ID, n.Name)
	return struct{}{}, nil
}

func (w walker) VisitBinary(n *ast.Binary) (struct{}, error) {
	w.resolveExpr(n.Left)
	w.resolveExpr(n.Right)
	return struct{}{}, nil
}

func (w walker) VisitLogical(n *ast.Logical) (struct{}, error) {
	w.resolveExpr(n.Left)
	w.resolveExpr(n.Right)
	return struct{}{}, nil
}

func (w walker) VisitUnary(n *ast.Unary) (struct{}, error) {
	w.resolveExpr(n.Right)
	return struct{}{}, nil
}

func (w walker) VisitGrouping(n *ast.Grouping) (struct{}, error) {
	w.resolveExpr(n.Expression)
	return struct{}{}, nil
}

func (w walker) VisitLiteral(*ast.Literal) (struct{}, error) {
	return struct{}{}, nil
}

func (w walker) VisitCall(n *ast.Call) (struct{}, error) {
	w.resolveExpr(n.Callee)
	for _, arg := range n.Arguments {
		w.resolveExpr(arg)
	}
	return struct{}{}, nil
}

func (w walker) VisitGet(n *ast.Get) (struct{}, error) {
	w.resolveExpr(n.Object)
	return struct{}{}, nil
}

func (w walker) VisitSet(n *ast.Set) (struct{}, error) {
	w.resolveExpr(n.Value)
	w.resolveExpr(n.Object)
	return struct{}{}, nil
}

func (w walker) VisitThis(n *ast.This) (struct{}, error) {
	if w.class == ClassNone {
		w.reporter.ErrorAt(n.Keyword, "Cannot use 'this' outside of a class.")
		return struct{}{}, nil
	}
	w.resolveLocal(n.ID, n.Keyword)
	return struct{}{}, nil
}

func (w walker) VisitSuper(n *ast.Super) (struct{}, error) {
	switch w.class {
	case ClassNone:
		w.reporter.ErrorAt(n.Keyword, "Cannot use 'super' outside of a class.")
		return struct{}{}, nil
	case ClassPlain:
		w.reporter.ErrorAt(n.Keyword, "Cannot use 'super' in a class with no superclass.")
		return struct{}{}, nil
	}
	w.resolveLocal(n.ID, n.Keyword)
	return struct{}{}, nil
}

// resolveLocal records the hop distance to the innermost scope declaring
// name. Globals are left out of the table.
func (r *Resolver) resolveLocal(id ast.NodeID, name token.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Lexeme]; ok {
			r.locals[id] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	s := r.peekScope()
	if _, ok := s[name.Lexeme]; ok {
		r.reporter.ErrorAt(name, "Variable with this name already declared in this scope.")
	}
	s[name.Lexeme] = false
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.peekScope()[name.Lexeme] = true
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(scope))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) peekScope() scope {
	return r.scopes[len(r.scopes)-1]
}
