package runtime

import (
	"testing"

	"github.com/lemonberrylabs/glox/pkg/token"
	"github.com/lemonberrylabs/glox/pkg/types"
)

func ident(name string) token.Token {
	return token.Token{Type: token.Identifier, Lexeme: name, Line: 1}
}

func TestEnvironmentChain(t *testing.T) {
	global := NewEnvironment()
	global.Define("a", types.NewNumber(1))

	child := global.NewChild()
	child.Define("b", types.NewNumber(2))
	grandchild := child.NewChild()

	v, err := grandchild.Get(ident("a"))
	if err != nil || !v.Equal(types.NewNumber(1)) {
		t.Errorf("Get(a) = %v, %v", v, err)
	}

	if err := grandchild.Assign(ident("b"), types.NewNumber(3)); err != nil {
		t.Fatal(err)
	}
	if got := child.GetAt(0, "b"); !got.Equal(types.NewNumber(3)) {
		t.Errorf("b = %v, want 3", got)
	}
	if got := grandchild.GetAt(1, "b"); !got.Equal(types.NewNumber(3)) {
		t.Errorf("GetAt(1, b) = %v, want 3", got)
	}

	grandchild.AssignAt(2, "a", types.NewString("x"))
	if got, _ := global.Get(ident("a")); got.String() != "x" {
		t.Errorf("a = %v, want x", got)
	}

	if grandchild.Enclosing() != child || global.Enclosing() != nil {
		t.Error("unexpected enclosing chain")
	}
}

func TestEnvironmentUndefined(t *testing.T) {
	env := NewEnvironment().NewChild()

	if _, err := env.Get(ident("missing")); err == nil {
		t.Error("Get of undefined name should fail")
	}
	if err := env.Assign(ident("missing"), types.Nil); err == nil {
		t.Error("Assign must not create a binding")
	}
	if _, err := env.Get(ident("missing")); err == nil {
		t.Error("failed Assign created a binding")
	}
}

func TestEnvironmentRedefine(t *testing.T) {
	env := NewEnvironment()
	env.Define("a", types.NewNumber(1))
	env.Define("a", types.NewNumber(2))
	if got, _ := env.Get(ident("a")); !got.Equal(types.NewNumber(2)) {
		t.Errorf("a = %v, want 2", got)
	}
}
