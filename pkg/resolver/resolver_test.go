package resolver

import (
	"testing"

	"github.com/lemonberrylabs/glox/pkg/ast"
	"github.com/lemonberrylabs/glox/pkg/diag"
	"github.com/lemonberrylabs/glox/pkg/parser"
	"github.com/lemonberrylabs/glox/pkg/scanner"
)

func resolve(t *testing.T, src string) ([]ast.Stmt, Locals, []diag.Diagnostic) {
	t.Helper()
	c := diag.NewCollector(nil)
	stmts := parser.New(scanner.New(src, c).ScanTokens(), c).Parse()
	if c.HasErrors() {
		t.Fatalf("parse errors: %v", c.Diagnostics())
	}
	c.SetStage(diag.StageResolve)
	locals := New(c).Resolve(stmts)
	return stmts, locals, c.Diagnostics()
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"top-level return", "return 1;", "[line1] Error.  at 'return': Cannot return from top-level code."},
		{"own initializer", "{ var a = a; }", "[line1] Error.  at 'a': Cannot read local variable in its own initializer."},
		{"redeclare", "{ var a; var a; }", "[line1] Error.  at 'a': Variable with this name already declared in this scope."},
		{"duplicate param", "fun f(a, a) {}", "[line1] Error.  at 'a': Variable with this name already declared in this scope."},
		{"init value", "class A { init() { return 1; } }", "[line1] Error.  at 'return': Cannot return a value from an initializer."},
		{"this outside", "print this;", "[line1] Error.  at 'this': Cannot use 'this' outside of a class."},
		{"this in function", "fun f() { return this; }", "[line1] Error.  at 'this': Cannot use 'this' outside of a class."},
		{"super outside", "fun f() { super.m(); }", "[line1] Error.  at 'super': Cannot use 'super' outside of a class."},
		{"super no superclass", "class A { m() { super.m(); } }", "[line1] Error.  at 'super': Cannot use 'super' in a class with no superclass."},
		{"self inherit", "class A < A {}", "[line1] Error.  at 'A': A class cannot inherit from itself."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := resolve(t, tt.input)
			if len(diags) != 1 {
				t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
			}
			if got := diags[0].String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveAllowed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"global redeclare", "var a = 1; var a = 2;"},
		{"global self reference", "var a = a;"},
		{"bare return in init", "class A { init() { return; } }"},
		{"shadowing", "{ var a = 1; { var a = 2; } }"},
		{"recursion", "fun f(n) { if (n > 0) f(n - 1); }"},
		{"super in subclass", "class A { m() {} } class B < A { m() { super.m(); } }"},
		{"this in method closure", "class A { m() { fun g() { return this; } return g; } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, diags := resolve(t, tt.input); len(diags) != 0 {
				t.Errorf("unexpected diagnostics: %v", diags)
			}
		})
	}
}

func TestResolveShadowingInitializerLine(t *testing.T) {
	// The inner initializer reads its own declaration, not the global.
	_, _, diags := resolve(t, "var a = 1;\n{\n  var a = a + 1;\n}")
	if len(diags) != 1 || diags[0].Line != 3 {
		t.Fatalf("got %v, want one diagnostic on line 3", diags)
	}
}

func TestResolveHops(t *testing.T) {
	src := `
var g = 0;
{
  var a = 1;
  {
    print a;
    print g;
  }
}
fun outer(x) {
  fun inner() { return x; }
  return inner;
}`
	stmts, locals, diags := resolve(t, src)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}

	inner := stmts[1].(*ast.Block).Statements[1].(*ast.Block)
	readA := inner.Statements[0].(*ast.Print).Expression.(*ast.Variable)
	readG := inner.Statements[1].(*ast.Print).Expression.(*ast.Variable)

	if hops, ok := locals[readA.ID]; !ok || hops != 1 {
		t.Errorf("a: hops = %d (resolved %v), want 1", hops, ok)
	}
	if _, ok := locals[readG.ID]; ok {
		t.Error("global g should not be in the table")
	}

	outer := stmts[2].(*ast.Function)
	innerFn := outer.Body[0].(*ast.Function)
	readX := innerFn.Body[0].(*ast.Return).Value.(*ast.Variable)
	if hops := locals[readX.ID]; hops != 1 {
		t.Errorf("x: hops = %d, want 1", hops)
	}
	readInner := outer.Body[1].(*ast.Return).Value.(*ast.Variable)
	if hops, ok := locals[readInner.ID]; !ok || hops != 0 {
		t.Errorf("inner: hops = %d (resolved %v), want 0", hops, ok)
	}
}

func TestResolveThisAndSuper(t *testing.T) {
	src := "class A { m() {} } class B < A { m() { super.m(); return this; } }"
	stmts, locals, diags := resolve(t, src)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}

	method := stmts[1].(*ast.Class).Methods[0]
	call := method.Body[0].(*ast.Expression).Expression.(*ast.Call)
	super := call.Callee.(*ast.Super)
	this := method.Body[1].(*ast.Return).Value.(*ast.This)

	// method scope -> this scope -> super scope
	if hops := locals[super.ID]; hops != 2 {
		t.Errorf("super: hops = %d, want 2", hops)
	}
	if hops := locals[this.ID]; hops != 1 {
		t.Errorf("this: hops = %d, want 1", hops)
	}
}

func TestResolveAssign(t *testing.T) {
	stmts, locals, _ := resolve(t, "{ var a; a = 2; }")
	assign := stmts[0].(*ast.Block).Statements[1].(*ast.Expression).Expression.(*ast.Assign)
	if hops, ok := locals[assign.ID]; !ok || hops != 0 {
		t.Errorf("hops = %d (resolved %v), want 0", hops, ok)
	}
}

func TestResolverReusable(t *testing.T) {
	c := diag.NewCollector(nil)
	r := New(c)

	first := parser.New(scanner.New("return;", c).ScanTokens(), c).Parse()
	r.Resolve(first)
	second := parser.New(scanner.New("fun f() { return; }", c).ScanTokens(), c).Parse()
	r.Resolve(second)

	if n := len(c.Diagnostics()); n != 1 {
		t.Errorf("got %d diagnostics, want 1", n)
	}
}
