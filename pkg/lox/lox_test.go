package lox

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lemonberrylabs/glox/pkg/types"
)

func newTestSession(opts ...Option) (*Session, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	s := NewSession(append([]Option{WithOutput(&out), WithErrorOutput(&errOut)}, opts...)...)
	return s, &out, &errOut
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"addition", "print 1 + 2;", "3.0\n"},
		{"closure counter", `
fun makeCounter() {
  var i = 0;
  fun count() { i = i + 1; return i; }
  return count;
}
var counter = makeCounter();
counter();
print counter();`, "2.0\n"},
		{"for loop", "for (var i = 0; i < 5; i = i + 1) print i;", "0.0\n1.0\n2.0\n3.0\n4.0\n"},
		{"instance", "class Thing {} print Thing();", "Thing Instance\n"},
		{"inherited method", `
class A { method() { print "A method"; } }
class B < A {}
B().method();`, "A method\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out, errOut := newTestSession()
			res := s.Run(context.Background(), tt.source)
			if !res.OK() {
				t.Fatalf("run failed at %s: %v (stderr %q)", res.Stage, res.Error(), errOut.String())
			}
			if out.String() != tt.want {
				t.Errorf("got %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRunTopLevelReturn(t *testing.T) {
	s, out, errOut := newTestSession()
	res := s.Run(context.Background(), "print \"before\"; return 1;")

	if res.Stage != StageResolve {
		t.Fatalf("stage = %s, want resolve", res.Stage)
	}
	if !res.Static() {
		t.Error("Static() = false")
	}
	if out.Len() != 0 {
		t.Errorf("program ran: output %q", out.String())
	}
	want := "[line1] Error.  at 'return': Cannot return from top-level code.\n"
	if errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}
}

func TestRunStagesStopEarly(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stage  Stage
	}{
		{"scan", "print @;", StageScan},
		{"parse", "print ;", StageParse},
		{"resolve", "{ var a = a; }", StageResolve},
		{"runtime", "print nope;", StageRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestSession()
			res := s.Run(context.Background(), tt.source)
			if res.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", res.Stage, tt.stage)
			}
			if res.Error() == nil {
				t.Error("Error() = nil")
			}
		})
	}
}

func TestRuntimeErrorReport(t *testing.T) {
	s, _, errOut := newTestSession()
	res := s.Run(context.Background(), "var a = 1;\nprint -\"x\";")
	if res.RuntimeErr == nil {
		t.Fatalf("expected runtime error, got %+v", res)
	}
	want := "Operand of '-' must be a number.\n[line 2]\n"
	if errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}
}

func TestSessionKeepsGlobals(t *testing.T) {
	s, out, _ := newTestSession()
	ctx := context.Background()

	for _, src := range []string{
		"var count = 0;",
		"fun bump() { var step = 1; count = count + step; }",
		"print nope;", // a failure does not poison later runs
		"bump(); bump(); print count;",
	} {
		s.Run(ctx, src)
	}
	if out.String() != "2.0\n" {
		t.Errorf("got %q", out.String())
	}

	s.Reset()
	if res := s.Run(ctx, "print count;"); res.RuntimeErr == nil {
		t.Error("Reset kept globals")
	}
}

func TestBadSuperclassLeavesNameNil(t *testing.T) {
	s, out, errOut := newTestSession()
	ctx := context.Background()

	res := s.Run(ctx, "var NotAClass = 1;\nclass A < NotAClass {}")
	if res.RuntimeErr == nil {
		t.Fatalf("expected runtime error, got %+v", res)
	}
	if want := "Superclass must be a class.\n[line 2]\n"; errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}

	if res := s.Run(ctx, "print A;"); !res.OK() {
		t.Fatalf("A is not defined after the failed class: %v", res.Error())
	}
	if out.String() != "nil\n" {
		t.Errorf("got %q, want %q", out.String(), "nil\n")
	}
}

func TestSessionDefine(t *testing.T) {
	s, out, _ := newTestSession()
	s.Define("argument", types.NewString("world"))
	if res := s.Run(context.Background(), `print "hello " + argument;`); !res.OK() {
		t.Fatalf("run failed: %v", res.Error())
	}
	if out.String() != "hello world\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestRunCancelled(t *testing.T) {
	s, _, _ := newTestSession()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res := s.Run(ctx, "while (true) {}")
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", res.Err)
	}
	if res.OK() {
		t.Error("OK() = true")
	}
}

func TestRunStepLimit(t *testing.T) {
	s, _, _ := newTestSession(WithMaxSteps(50))
	res := s.Run(context.Background(), "var i = 0; while (true) { i = i + 1; }")
	if res.RuntimeErr == nil || res.RuntimeErr.Message != "Execution exceeded maximum step limit of 50." {
		t.Errorf("got %+v", res)
	}
}

func TestParseAndCheck(t *testing.T) {
	stmts, diags := Parse("print 1; return;")
	if len(diags) != 0 || len(stmts) != 2 {
		t.Errorf("Parse: %d stmts, diags %v", len(stmts), diags)
	}
	if diags := Check("print 1; return;"); len(diags) != 1 {
		t.Errorf("Check: got %v, want the top-level return", diags)
	}
	if diags := Check("print 1;"); len(diags) != 0 {
		t.Errorf("Check: unexpected %v", diags)
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"fun f() {", true},
		{"print 1", true},
		{"print \"abc", true},
		{"print 1;", false},
		{"print ;", false},
	}
	for _, tt := range tests {
		_, diags := Parse(tt.source)
		if got := Incomplete(diags); got != tt.want {
			t.Errorf("Incomplete(%q) = %v, want %v (diags %v)", tt.source, got, tt.want, diags)
		}
	}
}
