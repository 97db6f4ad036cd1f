package types

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/glox/pkg/token"
)

// Error tag constants carried in failure payloads.
const (
	TagRuntimeError       = "RuntimeError"
	TagTypeError          = "TypeError"
	TagNameError          = "NameError"
	TagPropertyError      = "PropertyError"
	TagArityError         = "ArityError"
	TagRecursionError     = "RecursionError"
	TagResourceLimitError = "ResourceLimitError"
)

// RuntimeError is a Lox runtime error located at the token that caused it.
// It aborts the remainder of the program.
type RuntimeError struct {
	Token   token.Token
	Message string
	Tags    []string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return e.Message
}

// Line returns the source line of the offending token.
func (e *RuntimeError) Line() int {
	return e.Token.Line
}

// Report renders the error for the error channel: the message followed by
// the line on its own line.
func (e *RuntimeError) Report() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line)
}

// HasTag returns true if the error has the specified tag.
func (e *RuntimeError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Payload is the structured form of a RuntimeError used by the script host.
type Payload struct {
	Message string   `json:"message"`
	Line    int      `json:"line"`
	Tags    []string `json:"tags"`
}

// ToPayload converts the error into its JSON-friendly form.
func (e *RuntimeError) ToPayload() Payload {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)
	return Payload{Message: e.Message, Line: e.Token.Line, Tags: tags}
}

// String renders the payload tags for logs.
func (p Payload) String() string {
	return fmt.Sprintf("%s (line=%d, tags=[%s])", p.Message, p.Line, strings.Join(p.Tags, ", "))
}

// Common error constructors.

// NewRuntimeError creates a runtime error with only the base tag.
func NewRuntimeError(tok token.Token, msg string) *RuntimeError {
	return &RuntimeError{Token: tok, Message: msg, Tags: []string{TagRuntimeError}}
}

// NewTypeError creates an operand or callee type error.
func NewTypeError(tok token.Token, msg string) *RuntimeError {
	return &RuntimeError{Token: tok, Message: msg, Tags: []string{TagRuntimeError, TagTypeError}}
}

// NewNameError creates an undefined variable error.
func NewNameError(tok token.Token) *RuntimeError {
	return &RuntimeError{
		Token:   tok,
		Message: fmt.Sprintf("Undefined variable '%s'.", tok.Lexeme),
		Tags:    []string{TagRuntimeError, TagNameError},
	}
}

// NewPropertyError creates an undefined property error.
func NewPropertyError(tok token.Token) *RuntimeError {
	return &RuntimeError{
		Token:   tok,
		Message: fmt.Sprintf("Undefined property '%s'.", tok.Lexeme),
		Tags:    []string{TagRuntimeError, TagPropertyError},
	}
}

// NewArityError creates an argument count mismatch error.
func NewArityError(tok token.Token, want, got int) *RuntimeError {
	return &RuntimeError{
		Token:   tok,
		Message: fmt.Sprintf("Expected %d arguments but got %d.", want, got),
		Tags:    []string{TagRuntimeError, TagArityError},
	}
}

// NewRecursionError creates a RecursionError for call stack overflow.
func NewRecursionError(tok token.Token) *RuntimeError {
	return &RuntimeError{
		Token:   tok,
		Message: "Stack overflow.",
		Tags:    []string{TagRuntimeError, TagRecursionError, TagResourceLimitError},
	}
}

// NewResourceLimitError creates a ResourceLimitError.
func NewResourceLimitError(tok token.Token, msg string) *RuntimeError {
	return &RuntimeError{Token: tok, Message: msg, Tags: []string{TagRuntimeError, TagResourceLimitError}}
}
