// Package diag collects the non-fatal diagnostics reported by the scanner,
// parser and resolver. A Collector is created per run and queried between
// stages; nothing here is global.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/lemonberrylabs/glox/pkg/token"
)

// Stage identifies the pipeline stage that reported a diagnostic.
type Stage int

const (
	StageScan Stage = iota
	StageParse
	StageResolve
)

func (s Stage) String() string {
	switch s {
	case StageScan:
		return "scan"
	case StageParse:
		return "parse"
	case StageResolve:
		return "resolve"
	default:
		return "unknown"
	}
}

// MarshalText renders the stage by name in JSON payloads.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Stage   Stage  `json:"stage"`
	Line    int    `json:"line"`
	Where   string `json:"where,omitempty"` // " at end", " at 'x'", or empty for scan errors
	Message string `json:"message"`
}

// String renders the diagnostic in the line-oriented channel format.
func (d Diagnostic) String() string {
	if d.Where == "" {
		return fmt.Sprintf("[line%d] Error: %s", d.Line, d.Message)
	}
	return fmt.Sprintf("[line%d] Error. %s: %s", d.Line, d.Where, d.Message)
}

// Reporter receives diagnostics from a pipeline stage.
type Reporter interface {
	// Error reports a problem at a source line with no token context.
	Error(line int, message string)

	// ErrorAt reports a problem located at tok.
	ErrorAt(tok token.Token, message string)
}

// Collector implements Reporter and records everything it is told.
// When Out is set each diagnostic is also written there as it arrives.
type Collector struct {
	Out   io.Writer
	stage Stage
	diags []Diagnostic
}

// NewCollector creates a collector that echoes diagnostics to out (may be nil).
func NewCollector(out io.Writer) *Collector {
	return &Collector{Out: out}
}

// SetStage tags subsequent diagnostics with stage.
func (c *Collector) SetStage(stage Stage) {
	c.stage = stage
}

// Error implements Reporter.
func (c *Collector) Error(line int, message string) {
	c.add(Diagnostic{Stage: c.stage, Line: line, Message: message})
}

// ErrorAt implements Reporter.
func (c *Collector) ErrorAt(tok token.Token, message string) {
	where := " at '" + tok.Lexeme + "'"
	if tok.Type == token.EOF {
		where = " at end"
	}
	c.add(Diagnostic{Stage: c.stage, Line: tok.Line, Where: where, Message: message})
}

func (c *Collector) add(d Diagnostic) {
	c.diags = append(c.diags, d)
	if c.Out != nil {
		fmt.Fprintln(c.Out, d.String())
	}
}

// HasErrors reports whether anything has been recorded.
func (c *Collector) HasErrors() bool {
	return len(c.diags) > 0
}

// Diagnostics returns a copy of the recorded diagnostics in report order.
func (c *Collector) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Error renders every diagnostic, one per line. It lets a failed stage be
// handed around as an error value.
type Error []Diagnostic

func (e Error) Error() string {
	lines := make([]string, len(e))
	for i, d := range e {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
