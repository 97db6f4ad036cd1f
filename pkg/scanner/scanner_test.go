package scanner

import (
	"testing"

	"github.com/lemonberrylabs/glox/pkg/diag"
	"github.com/lemonberrylabs/glox/pkg/token"
)

func scanTypes(t *testing.T, src string) ([]token.Type, *diag.Collector) {
	t.Helper()
	c := diag.NewCollector(nil)
	toks := New(src, c).ScanTokens()
	types := make([]token.Type, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types, c
}

func TestScanOperators(t *testing.T) {
	tests := []struct {
		input string
		want  []token.Type
	}{
		{"(){},.-+;*", []token.Type{
			token.LeftParen, token.RightParen, token.LeftBrace, token.RightBrace,
			token.Comma, token.Dot, token.Minus, token.Plus, token.Semicolon, token.Star, token.EOF,
		}},
		{"! != = == < <= > >=", []token.Type{
			token.Bang, token.BangEqual, token.Equal, token.EqualEqual,
			token.Less, token.LessEqual, token.Greater, token.GreaterEqual, token.EOF,
		}},
		{"!==", []token.Type{token.BangEqual, token.Equal, token.EOF}},
		{"a / b // trailing comment", []token.Type{token.Identifier, token.Slash, token.Identifier, token.EOF}},
		{"", []token.Type{token.EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, c := scanTypes(t, tt.input)
			if c.HasErrors() {
				t.Fatalf("unexpected diagnostics: %v", c.Diagnostics())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := New("class fun orchid _x1 nil", diag.NewCollector(nil)).ScanTokens()
	want := []token.Type{token.Class, token.Fun, token.Identifier, token.Identifier, token.Nil, token.EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
	if toks[2].Lexeme != "orchid" {
		t.Errorf("lexeme = %q, want orchid", toks[2].Lexeme)
	}
}

func TestScanLiterals(t *testing.T) {
	tests := []struct {
		input string
		typ   token.Type
		want  any
	}{
		{"123", token.Number, 123.0},
		{"3.14", token.Number, 3.14},
		{`"hello"`, token.String, "hello"},
		{`'single'`, token.String, "single"},
		{`""`, token.String, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := New(tt.input, diag.NewCollector(nil)).ScanTokens()
			if toks[0].Type != tt.typ {
				t.Fatalf("type = %s, want %s", toks[0].Type, tt.typ)
			}
			if toks[0].Literal != tt.want {
				t.Errorf("literal = %v, want %v", toks[0].Literal, tt.want)
			}
		})
	}
}

func TestScanTrailingDot(t *testing.T) {
	got, _ := scanTypes(t, "1.")
	want := []token.Type{token.Number, token.Dot, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScanLineNumbers(t *testing.T) {
	toks := New("a\n\"x\ny\"\nb", diag.NewCollector(nil)).ScanTokens()
	wantLines := []int{1, 3, 4, 4}
	for i, line := range wantLines {
		if toks[i].Line != line {
			t.Errorf("token %d (%s): line = %d, want %d", i, toks[i].Type, toks[i].Line, line)
		}
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		line    int
	}{
		{"var a = @;", "Unexpected character.", 1},
		{"var é = 1;", "Unexpected character.", 1},
		{"print 1;\n🙂", "Unexpected character.", 2},
		{"\n\"never closed", "Unterminated string.", 2},
		{`"mixed'`, "Unterminated string.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, c := scanTypes(t, tt.input)
			if got[len(got)-1] != token.EOF {
				t.Errorf("last token = %s, want EOF", got[len(got)-1])
			}
			diags := c.Diagnostics()
			if len(diags) != 1 {
				t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
			}
			if diags[0].Message != tt.message || diags[0].Line != tt.line {
				t.Errorf("got %+v, want %q on line %d", diags[0], tt.message, tt.line)
			}
		})
	}
}

func TestScanMultiByteCharacter(t *testing.T) {
	got, c := scanTypes(t, "a日1")
	if n := len(c.Diagnostics()); n != 1 {
		t.Errorf("got %d diagnostics, want 1", n)
	}
	want := []token.Type{token.Identifier, token.Number, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScanContinuesAfterError(t *testing.T) {
	got, c := scanTypes(t, "# 1 $ 2")
	if n := len(c.Diagnostics()); n != 2 {
		t.Errorf("got %d diagnostics, want 2", n)
	}
	want := []token.Type{token.Number, token.Number, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
