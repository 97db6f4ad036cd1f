package runtime

import (
	"context"

	"github.com/lemonberrylabs/glox/pkg/token"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// Class is a Lox class. Calling it constructs an Instance.
type Class struct {
	Name       string
	Superclass *Class // nil when absent
	methods    map[string]*Function
}

// NewClass creates a class. methods is owned by the class afterwards.
func NewClass(name string, superclass *Class, methods map[string]*Function) *Class {
	if methods == nil {
		methods = make(map[string]*Function)
	}
	return &Class{Name: name, Superclass: superclass, methods: methods}
}

func (c *Class) Kind() types.Kind { return types.KindCallable }
func (c *Class) String() string   { return c.Name }

// FindMethod looks name up on the class, then its superclasses.
func (c *Class) FindMethod(name string) *Function {
	for class := c; class != nil; class = class.Superclass {
		if m, ok := class.methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the initializer's arity, or 0 without one.
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call creates an instance and runs the initializer on it.
func (c *Class) Call(ctx context.Context, in *Interpreter, args []types.Value) (types.Value, error) {
	inst := NewInstance(c)
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.Bind(inst).Call(ctx, in, args); err != nil {
			return types.Nil, err
		}
	}
	return types.NewObject(inst), nil
}

// Instance is an object created by calling a class.
type Instance struct {
	class  *Class
	fields map[string]types.Value
}

// NewInstance creates an instance of class with no fields.
func NewInstance(class *Class) *Instance {
	return &Instance{class: class, fields: make(map[string]types.Value)}
}

func (i *Instance) Kind() types.Kind { return types.KindInstance }
func (i *Instance) String() string   { return i.class.Name + " Instance" }

// Class returns the class the instance was created from.
func (i *Instance) Class() *Class {
	return i.class
}

// Get returns a field, or a method bound to the instance. Fields shadow
// methods.
func (i *Instance) Get(name token.Token) (types.Value, error) {
	if v, ok := i.fields[name.Lexeme]; ok {
		return v, nil
	}
	if m := i.class.FindMethod(name.Lexeme); m != nil {
		return types.NewObject(m.Bind(i)), nil
	}
	return types.Nil, types.NewPropertyError(name)
}

// Set writes a field, creating it if needed.
func (i *Instance) Set(name token.Token, value types.Value) {
	i.fields[name.Lexeme] = value
}
