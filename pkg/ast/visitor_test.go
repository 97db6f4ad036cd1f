package ast

import (
	"errors"
	"testing"
)

// names reports which method each node was dispatched to.
type names struct{}

func (names) VisitLiteral(*Literal) (string, error)   { return "Literal", nil }
func (names) VisitGrouping(*Grouping) (string, error) { return "Grouping", nil }
func (names) VisitUnary(*Unary) (string, error)       { return "Unary", nil }
func (names) VisitBinary(*Binary) (string, error)     { return "Binary", nil }
func (names) VisitLogical(*Logical) (string, error)   { return "Logical", nil }
func (names) VisitVariable(*Variable) (string, error) { return "Variable", nil }
func (names) VisitAssign(*Assign) (string, error)     { return "Assign", nil }
func (names) VisitCall(*Call) (string, error)         { return "Call", nil }
func (names) VisitGet(*Get) (string, error)           { return "Get", nil }
func (names) VisitSet(*Set) (string, error)           { return "Set", nil }
func (names) VisitThis(*This) (string, error)         { return "This", nil }
func (names) VisitSuper(*Super) (string, error)       { return "Super", nil }

func (names) VisitExpression(*Expression) (string, error) { return "Expression", nil }
func (names) VisitPrint(*Print) (string, error)           { return "Print", nil }
func (names) VisitVar(*Var) (string, error)               { return "Var", nil }
func (names) VisitBlock(*Block) (string, error)           { return "Block", nil }
func (names) VisitIf(*If) (string, error)                 { return "If", nil }
func (names) VisitWhile(*While) (string, error)           { return "While", nil }
func (names) VisitFunction(*Function) (string, error)     { return "Function", nil }
func (names) VisitReturn(*Return) (string, error)         { return "Return", nil }
func (names) VisitClass(*Class) (string, error)           { return "Class", nil }

func TestAcceptExpr(t *testing.T) {
	tests := []struct {
		node Expr
		want string
	}{
		{&Literal{}, "Literal"},
		{&Grouping{}, "Grouping"},
		{&Unary{}, "Unary"},
		{&Binary{}, "Binary"},
		{&Logical{}, "Logical"},
		{&Variable{}, "Variable"},
		{&Assign{}, "Assign"},
		{&Call{}, "Call"},
		{&Get{}, "Get"},
		{&Set{}, "Set"},
		{&This{}, "This"},
		{&Super{}, "Super"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := AcceptExpr[string](tt.node, names{})
			if err != nil || got != tt.want {
				t.Errorf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestAcceptStmt(t *testing.T) {
	tests := []struct {
		node Stmt
		want string
	}{
		{&Expression{}, "Expression"},
		{&Print{}, "Print"},
		{&Var{}, "Var"},
		{&Block{}, "Block"},
		{&If{}, "If"},
		{&While{}, "While"},
		{&Function{}, "Function"},
		{&Return{}, "Return"},
		{&Class{}, "Class"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := AcceptStmt[string](tt.node, names{})
			if err != nil || got != tt.want {
				t.Errorf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

// failing fails when it visits a print statement.
type failing struct{ names }

var errVisit = errors.New("visit failed")

func (failing) VisitPrint(*Print) (string, error) { return "", errVisit }

func TestAcceptReturnsVisitError(t *testing.T) {
	if _, err := AcceptStmt[string](&Print{}, failing{}); !errors.Is(err, errVisit) {
		t.Errorf("got %v, want %v", err, errVisit)
	}
}
