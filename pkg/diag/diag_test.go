package diag

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/lemonberrylabs/glox/pkg/token"
)

func TestCollectorFormats(t *testing.T) {
	var out bytes.Buffer
	c := NewCollector(&out)

	c.Error(3, "Unexpected character.")
	c.SetStage(StageParse)
	c.ErrorAt(token.Token{Type: token.EOF, Line: 4}, "Expect expression.")
	c.SetStage(StageResolve)
	c.ErrorAt(token.Token{Type: token.Return, Lexeme: "return", Line: 1}, "Cannot return from top-level code.")

	want := "[line3] Error: Unexpected character.\n" +
		"[line4] Error.  at end: Expect expression.\n" +
		"[line1] Error.  at 'return': Cannot return from top-level code.\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}

	diags := c.Diagnostics()
	if len(diags) != 3 {
		t.Fatalf("got %d diagnostics, want 3", len(diags))
	}
	if diags[0].Stage != StageScan || diags[1].Stage != StageParse || diags[2].Stage != StageResolve {
		t.Errorf("stages = %v %v %v", diags[0].Stage, diags[1].Stage, diags[2].Stage)
	}
	if !c.HasErrors() {
		t.Error("HasErrors() = false")
	}
}

func TestCollectorEmpty(t *testing.T) {
	c := NewCollector(nil)
	if c.HasErrors() {
		t.Error("new collector reports errors")
	}
	c.Error(1, "x")
	if len(c.Diagnostics()) != 1 {
		t.Error("nil Out should still record")
	}
}

func TestDiagnosticsIsCopy(t *testing.T) {
	c := NewCollector(nil)
	c.Error(1, "first")
	d := c.Diagnostics()
	d[0].Message = "changed"
	if c.Diagnostics()[0].Message != "first" {
		t.Error("Diagnostics() exposed internal slice")
	}
}

func TestErrorJoinsLines(t *testing.T) {
	err := Error{{Line: 1, Message: "a"}, {Line: 2, Where: " at 'x'", Message: "b"}}
	want := "[line1] Error: a\n[line2] Error.  at 'x': b"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDiagnosticJSON(t *testing.T) {
	d := Diagnostic{Stage: StageParse, Line: 2, Where: " at end", Message: "Expect expression."}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"stage":"parse","line":2,"where":" at end","message":"Expect expression."}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
