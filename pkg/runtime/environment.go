// Package runtime implements the Lox tree-walking interpreter and its
// object model: environments, functions, classes and instances.
package runtime

import (
	"github.com/lemonberrylabs/glox/pkg/token"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// Environment stores variable bindings with enclosing scope chaining.
// Unresolved names are looked up by walking the chain; resolved names are
// reached directly by hop distance.
type Environment struct {
	enclosing *Environment
	values    map[string]types.Value
}

// NewEnvironment creates a root (global) environment.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]types.Value)}
}

// NewChild creates an environment enclosed by e.
func (e *Environment) NewChild() *Environment {
	return &Environment{enclosing: e, values: make(map[string]types.Value)}
}

// Enclosing returns the parent environment, or nil for the globals.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this environment, replacing any existing binding.
func (e *Environment) Define(name string, value types.Value) {
	e.values[name] = value
}

// Get looks name up through the chain.
func (e *Environment) Get(name token.Token) (types.Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name.Lexeme]; ok {
			return v, nil
		}
	}
	return types.Nil, types.NewNameError(name)
}

// Assign overwrites the nearest existing binding of name. It never creates
// a binding.
func (e *Environment) Assign(name token.Token, value types.Value) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return types.NewNameError(name)
}

// GetAt reads name from the environment exactly distance hops up.
func (e *Environment) GetAt(distance int, name string) types.Value {
	return e.ancestor(distance).values[name]
}

// AssignAt writes name in the environment exactly distance hops up.
func (e *Environment) AssignAt(distance int, name string, value types.Value) {
	e.ancestor(distance).values[name] = value
}

// ancestor walks distance hops up the chain. The resolver guarantees the
// chain is long enough.
func (e *Environment) ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance; i++ {
		env = env.enclosing
	}
	return env
}
