package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lemonberrylabs/glox/pkg/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("GLOX_CONFIG", "")
	var stdout, stderr bytes.Buffer
	a := &app{stdin: strings.NewReader(""), stdout: &stdout, stderr: &stderr}
	code := execute(context.Background(), a, args)
	return code, stdout.String(), stderr.String()
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantCode   int
		wantOut    string
		wantStderr string
	}{
		{"ok", `print "one"; print 1 + 2;`, 0, "one\n3.0\n", ""},
		{"parse error", "print ;", exitStatic, "", "Expect expression."},
		{"resolve error", "return 1;", exitStatic, "", "Cannot return from top-level code."},
		{"runtime error", "print 1;\nprint -\"x\";", exitRuntime, "1.0\n", "Operand of '-' must be a number."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "prog.lox", tt.source)
			for _, args := range [][]string{{path}, {"run", path}} {
				code, out, errOut := runCLI(t, args...)
				if code != tt.wantCode {
					t.Errorf("%v: exit code %d, want %d (stderr %q)", args, code, tt.wantCode, errOut)
				}
				if out != tt.wantOut {
					t.Errorf("%v: stdout %q, want %q", args, out, tt.wantOut)
				}
				if tt.wantStderr != "" && !strings.Contains(errOut, tt.wantStderr) {
					t.Errorf("%v: stderr %q, want it to contain %q", args, errOut, tt.wantStderr)
				}
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	code, _, errOut := runCLI(t, "run", filepath.Join(t.TempDir(), "absent.lox"))
	if code != 1 || !strings.Contains(errOut, "reading") {
		t.Errorf("code %d stderr %q", code, errOut)
	}
}

func TestStepLimitFlag(t *testing.T) {
	path := writeFile(t, "spin.lox", "while (true) {}")
	code, _, errOut := runCLI(t, "--max-steps", "100", "run", path)
	if code != exitRuntime {
		t.Errorf("exit code %d, stderr %q", code, errOut)
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != 0 || !strings.HasPrefix(out, "glox version dev") {
		t.Errorf("code %d output %q", code, out)
	}
}

func TestParseCommand(t *testing.T) {
	path := writeFile(t, "expr.lox", "print 1 + 2 * 3;\nvar x;")
	code, out, _ := runCLI(t, "parse", path)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if want := "(print (+ 1.0 (* 2.0 3.0)))\n(var x)\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	bad := writeFile(t, "bad.lox", "print (1;")
	code, _, errOut := runCLI(t, "parse", bad)
	if code != exitStatic || !strings.Contains(errOut, "Expect ')' after expression.") {
		t.Errorf("code %d stderr %q", code, errOut)
	}
}

func TestConfigFile(t *testing.T) {
	cfgPath := writeFile(t, "glox.yaml", "interpreter:\n  max_call_depth: 8\n")
	prog := writeFile(t, "deep.lox", "fun f(n) { return f(n + 1); }\nf(0);")

	code, _, errOut := runCLI(t, "--config", cfgPath, "run", prog)
	if code != exitRuntime || !strings.Contains(errOut, "Stack overflow.") {
		t.Errorf("code %d stderr %q", code, errOut)
	}

	bad := writeFile(t, "bad.yaml", "interpreter:\n  max_call_depth: 0\n")
	if code, _, _ := runCLI(t, "--config", bad, "run", prog); code != 1 {
		t.Errorf("invalid config: exit code %d", code)
	}
}

func TestServerFlags(t *testing.T) {
	cmd := newServeCmd(&app{})
	if err := cmd.ParseFlags([]string{"--port", "9000", "--project", "p1", "--run-timeout", "2s"}); err != nil {
		t.Fatal(err)
	}
	s := config.Default().Server
	applyServerFlags(cmd, &s)
	if s.Port != 9000 || s.Project != "p1" || s.RunTimeout != 2*time.Second {
		t.Errorf("got %+v", s)
	}
	if s.GRPCPort != 8788 || s.Location != "us-central1" {
		t.Errorf("unset flags changed defaults: %+v", s)
	}
}

func TestScriptIDFor(t *testing.T) {
	for path, want := range map[string]string{
		"scripts/Hello.lox": "hello",
		"fib.lox":           "fib",
		"/tmp/noext":        "noext",
	} {
		if got := scriptIDFor(path); got != want {
			t.Errorf("scriptIDFor(%q) = %q, want %q", path, got, want)
		}
	}
}

// fakeReader feeds prepared lines to the REPL, then reports end of input.
type fakeReader struct {
	lines   []string
	prompts []string
}

func (f *fakeReader) Prompt(prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func newTestApp() (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &app{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdout: &stdout,
		stderr: &stderr,
	}, &stdout, &stderr
}

func TestREPLSession(t *testing.T) {
	a, stdout, stderr := newTestApp()
	in := &fakeReader{lines: []string{
		"var a = 1;",
		"fun f() {",
		"  return a + 1;",
		"}",
		"print f();",
		"print nope;",
		"print a;",
		":ast 1 + 2;",
		":reset",
		"print a;",
		":quit",
		"print 99;",
	}}
	var history []string

	if err := a.loop(context.Background(), in, func(s string) { history = append(history, s) }); err != nil {
		t.Fatal(err)
	}

	want := banner + "\n2.0\n1.0\n(; (+ 1.0 2.0))\nSession reset.\n"
	if stdout.String() != want {
		t.Errorf("stdout:\n%q\nwant:\n%q", stdout.String(), want)
	}
	if n := strings.Count(stderr.String(), "Undefined variable"); n != 2 {
		t.Errorf("expected two undefined variable errors, stderr:\n%s", stderr.String())
	}
	if len(in.lines) != 1 {
		t.Errorf("REPL kept reading after :quit")
	}
	if history[1] != "fun f() {   return a + 1; }" {
		t.Errorf("history entry %q", history[1])
	}

	wantPrompts := []string{"> ", "> ", "... ", "... "}
	for i, p := range wantPrompts {
		if in.prompts[i] != p {
			t.Errorf("prompt %d = %q, want %q", i, in.prompts[i], p)
		}
	}
}

func TestREPLCommands(t *testing.T) {
	lib := writeFile(t, "lib.lox", "fun twice(x) { return x * 2; }")
	a, stdout, stderr := newTestApp()
	in := &fakeReader{lines: []string{
		":help",
		":load " + lib,
		"print twice(21);",
		":load",
		":ast print ;",
		":frobnicate",
	}}

	if err := a.loop(context.Background(), in, func(string) {}); err != nil {
		t.Fatal(err)
	}

	out := stdout.String()
	for _, want := range []string{":load <file>", "42.0\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	errOut := stderr.String()
	for _, want := range []string{"usage: :load <file>", "Expect expression.", "Unknown command :frobnicate"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("stderr missing %q:\n%s", want, errOut)
		}
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Errorf("expected a newline at end of input, got %q", out)
	}
}

func TestREPLStopsWithContext(t *testing.T) {
	a, _, _ := newTestApp()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := &fakeReader{lines: []string{"print 1;"}}
	if err := a.loop(ctx, in, func(string) {}); err != nil {
		t.Fatal(err)
	}
	if len(in.prompts) != 0 {
		t.Error("REPL prompted after the context ended")
	}
}

func TestHistoryPath(t *testing.T) {
	if got := historyPath(""); got != "" {
		t.Errorf("empty: %q", got)
	}
	if got := historyPath("/var/tmp/h"); got != "/var/tmp/h" {
		t.Errorf("absolute: %q", got)
	}
	if got := historyPath(".h"); !strings.HasSuffix(got, string(filepath.Separator)+".h") {
		t.Errorf("relative: %q", got)
	}
}

func TestSubcommands(t *testing.T) {
	root := newRootCmd(&app{stdout: io.Discard, stderr: io.Discard})
	for _, path := range [][]string{{"run"}, {"repl"}, {"parse"}, {"serve"}, {"remote", "run"}} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("missing command %v", path)
		}
	}
}

func TestRunArgument(t *testing.T) {
	path := writeFile(t, "greet.lox", `if (argument == nil) print "none"; else print argument;`)

	if _, out, _ := runCLI(t, path); out != "none\n" {
		t.Errorf("without argument: %q", out)
	}
	if _, out, _ := runCLI(t, "run", "--argument", "given", path); out != "given\n" {
		t.Errorf("with argument: %q", out)
	}
}
