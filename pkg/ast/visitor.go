package ast

// ExprVisitor is a pass over expressions producing an R per node. Adding a
// variant adds a method here, so every pass stops compiling until it
// handles the new node.
type ExprVisitor[R any] interface {
	VisitLiteral(*Literal) (R, error)
	VisitGrouping(*Grouping) (R, error)
	VisitUnary(*Unary) (R, error)
	VisitBinary(*Binary) (R, error)
	VisitLogical(*Logical) (R, error)
	VisitVariable(*Variable) (R, error)
	VisitAssign(*Assign) (R, error)
	VisitCall(*Call) (R, error)
	VisitGet(*Get) (R, error)
	VisitSet(*Set) (R, error)
	VisitThis(*This) (R, error)
	VisitSuper(*Super) (R, error)
}

// StmtVisitor is a pass over statements producing an R per node.
type StmtVisitor[R any] interface {
	VisitExpression(*Expression) (R, error)
	VisitPrint(*Print) (R, error)
	VisitVar(*Var) (R, error)
	VisitBlock(*Block) (R, error)
	VisitIf(*If) (R, error)
	VisitWhile(*While) (R, error)
	VisitFunction(*Function) (R, error)
	VisitReturn(*Return) (R, error)
	VisitClass(*Class) (R, error)
}

// AcceptExpr calls the method of v that matches the concrete type of e.
func AcceptExpr[R any](e Expr, v ExprVisitor[R]) (R, error) {
	c := exprCall[R]{v: v}
	e.accept(&c)
	return c.out, c.err
}

// AcceptStmt calls the method of v that matches the concrete type of s.
func AcceptStmt[R any](s Stmt, v StmtVisitor[R]) (R, error) {
	c := stmtCall[R]{v: v}
	s.accept(&c)
	return c.out, c.err
}

// Node methods cannot be generic, so each node's accept hands itself to a
// non-generic dispatcher, and exprCall/stmtCall forward to the visitor
// with the result type.

type exprDispatcher interface {
	literal(*Literal)
	grouping(*Grouping)
	unary(*Unary)
	binary(*Binary)
	logical(*Logical)
	variable(*Variable)
	assign(*Assign)
	call(*Call)
	get(*Get)
	set(*Set)
	this(*This)
	super(*Super)
}

type stmtDispatcher interface {
	expression(*Expression)
	print(*Print)
	varDecl(*Var)
	block(*Block)
	ifStmt(*If)
	while(*While)
	function(*Function)
	returnStmt(*Return)
	class(*Class)
}

type exprCall[R any] struct {
	v   ExprVisitor[R]
	out R
	err error
}

func (c *exprCall[R]) literal(n *Literal)   { c.out, c.err = c.v.VisitLiteral(n) }
func (c *exprCall[R]) grouping(n *Grouping) { c.out, c.err = c.v.VisitGrouping(n) }
func (c *exprCall[R]) unary(n *Unary)       { c.out, c.err = c.v.VisitUnary(n) }
func (c *exprCall[R]) binary(n *Binary)     { c.out, c.err = c.v.VisitBinary(n) }
func (c *exprCall[R]) logical(n *Logical)   { c.out, c.err = c.v.VisitLogical(n) }
func (c *exprCall[R]) variable(n *Variable) { c.out, c.err = c.v.VisitVariable(n) }
func (c *exprCall[R]) assign(n *Assign)     { c.out, c.err = c.v.VisitAssign(n) }
func (c *exprCall[R]) call(n *Call)         { c.out, c.err = c.v.VisitCall(n) }
func (c *exprCall[R]) get(n *Get)           { c.out, c.err = c.v.VisitGet(n) }
func (c *exprCall[R]) set(n *Set)           { c.out, c.err = c.v.VisitSet(n) }
func (c *exprCall[R]) this(n *This)         { c.out, c.err = c.v.VisitThis(n) }
func (c *exprCall[R]) super(n *Super)       { c.out, c.err = c.v.VisitSuper(n) }

type stmtCall[R any] struct {
	v   StmtVisitor[R]
	out R
	err error
}

func (c *stmtCall[R]) expression(n *Expression) { c.out, c.err = c.v.VisitExpression(n) }
func (c *stmtCall[R]) print(n *Print)           { c.out, c.err = c.v.VisitPrint(n) }
func (c *stmtCall[R]) varDecl(n *Var)           { c.out, c.err = c.v.VisitVar(n) }
func (c *stmtCall[R]) block(n *Block)           { c.out, c.err = c.v.VisitBlock(n) }
func (c *stmtCall[R]) ifStmt(n *If)             { c.out, c.err = c.v.VisitIf(n) }
func (c *stmtCall[R]) while(n *While)           { c.out, c.err = c.v.VisitWhile(n) }
func (c *stmtCall[R]) function(n *Function)     { c.out, c.err = c.v.VisitFunction(n) }
func (c *stmtCall[R]) returnStmt(n *Return)     { c.out, c.err = c.v.VisitReturn(n) }
func (c *stmtCall[R]) class(n *Class)           { c.out, c.err = c.v.VisitClass(n) }

func (n *Literal) accept(d exprDispatcher)  { d.literal(n) }
func (n *Grouping) accept(d exprDispatcher) { d.grouping(n) }
func (n *Unary) accept(d exprDispatcher)    { d.unary(n) }
func (n *Binary) accept(d exprDispatcher)   { d.binary(n) }
func (n *Logical) accept(d exprDispatcher)  { d.logical(n) }
func (n *Variable) accept(d exprDispatcher) { d.variable(n) }
func (n *Assign) accept(d exprDispatcher)   { d.assign(n) }
func (n *Call) accept(d exprDispatcher)     { d.call(n) }
func (n *Get) accept(d exprDispatcher)      { d.get(n) }
func (n *Set) accept(d exprDispatcher)      { d.set(n) }
func (n *This) accept(d exprDispatcher)     { d.this(n) }
func (n *Super) accept(d exprDispatcher)    { d.super(n) }

func (n *Expression) accept(d stmtDispatcher) { d.expression(n) }
func (n *Print) accept(d stmtDispatcher)      { d.print(n) }
func (n *Var) accept(d stmtDispatcher)        { d.varDecl(n) }
func (n *Block) accept(d stmtDispatcher)      { d.block(n) }
func (n *If) accept(d stmtDispatcher)         { d.ifStmt(n) }
func (n *While) accept(d stmtDispatcher)      { d.while(n) }
func (n *Function) accept(d stmtDispatcher)   { d.function(n) }
func (n *Return) accept(d stmtDispatcher)     { d.returnStmt(n) }
func (n *Class) accept(d stmtDispatcher)      { d.class(n) }
