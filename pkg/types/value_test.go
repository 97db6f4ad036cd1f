package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/lemonberrylabs/glox/pkg/token"
)

type fakeObject struct{ name string }

func (o *fakeObject) Kind() Kind     { return KindInstance }
func (o *fakeObject) String() string { return o.name + " Instance" }

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{Value{}, "nil"},
		{NewBool(true), "true"},
		{NewBool(false), "false"},
		{NewNumber(3), "3.0"},
		{NewNumber(-0.5), "-0.5"},
		{NewNumber(3.14), "3.14"},
		{NewNumber(1e20), "1e+20"},
		{NewNumber(math.Inf(1)), "inf"},
		{NewString("hi"), "hi"},
		{NewObject(&fakeObject{"Thing"}), "Thing Instance"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{NewBool(false), false},
		{NewBool(true), true},
		{NewNumber(0), true},
		{NewString(""), true},
		{NewObject(&fakeObject{"x"}), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("Truthy(%s) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	a := &fakeObject{"a"}
	b := &fakeObject{"a"}

	tests := []struct {
		name string
		x, y Value
		want bool
	}{
		{"nil nil", Nil, Nil, true},
		{"number", NewNumber(1), NewNumber(1), true},
		{"number differs", NewNumber(1), NewNumber(2), false},
		{"no coercion", NewNumber(1), NewString("1"), false},
		{"nil vs false", Nil, NewBool(false), false},
		{"string", NewString("x"), NewString("x"), true},
		{"same object", NewObject(a), NewObject(a), true},
		{"distinct objects", NewObject(a), NewObject(b), false},
		{"nan", NewNumber(math.NaN()), NewNumber(math.NaN()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Equal(tt.y); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromLiteral(t *testing.T) {
	if v := FromLiteral(2.5); v.Kind() != KindNumber {
		t.Errorf("kind = %s", v.Kind())
	}
	if v := FromLiteral("s"); v.AsString() != "s" {
		t.Errorf("got %q", v.AsString())
	}
	if v := FromLiteral(nil); !v.IsNil() {
		t.Error("expected nil")
	}
	if v := FromLiteral(true); !v.AsBool() {
		t.Error("expected true")
	}
}

func TestMarshalJSON(t *testing.T) {
	vals := []Value{Nil, NewBool(true), NewNumber(2), NewString("x"), NewObject(&fakeObject{"A"})}
	data, err := json.Marshal(vals)
	if err != nil {
		t.Fatal(err)
	}
	want := `[null,true,2,"x","A Instance"]`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestRuntimeErrorReport(t *testing.T) {
	tok := token.Token{Type: token.Identifier, Lexeme: "x", Line: 7}
	err := NewNameError(tok)
	if err.Error() != "Undefined variable 'x'." {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Report() != "Undefined variable 'x'.\n[line 7]" {
		t.Errorf("Report() = %q", err.Report())
	}
	if !err.HasTag(TagNameError) || !err.HasTag(TagRuntimeError) {
		t.Errorf("tags = %v", err.Tags)
	}

	p := NewRecursionError(tok).ToPayload()
	if p.Message != "Stack overflow." || p.Line != 7 || len(p.Tags) != 3 {
		t.Errorf("payload = %+v", p)
	}
}
