// Package runner validates, deploys and executes hosted Lox scripts. It is
// shared by the REST and gRPC servers so both behave identically.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lemonberrylabs/glox/pkg/diag"
	"github.com/lemonberrylabs/glox/pkg/lox"
	"github.com/lemonberrylabs/glox/pkg/store"
	"github.com/lemonberrylabs/glox/pkg/types"
)

// ArgumentGlobal is the global variable that holds a run's argument.
const ArgumentGlobal = "argument"

// ArgumentValue converts a run argument to its Lox value: a string, or nil
// when empty.
func ArgumentValue(argument string) types.Value {
	if argument == "" {
		return types.Nil
	}
	return types.NewString(argument)
}

// ValidationError rejects a source that does not scan, parse or resolve.
type ValidationError struct {
	Diagnostics []diag.Diagnostic
}

func (e *ValidationError) Error() string {
	return "invalid script: " + diag.Error(e.Diagnostics).Error()
}

// Outcome is the result of a synchronous run.
type Outcome struct {
	Output      string            `json:"output"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
	Error       *types.Payload    `json:"error,omitempty"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithTimeout bounds the wall-clock time of each run. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithMaxSteps bounds the statements executed by each run.
func WithMaxSteps(n int) Option {
	return func(r *Runner) { r.maxSteps = n }
}

// WithMaxCallDepth bounds call nesting in each run.
func WithMaxCallDepth(n int) Option {
	return func(r *Runner) { r.maxCallDepth = n }
}

// Runner executes scripts from a store. Each run gets its own session.
type Runner struct {
	store        *store.Store
	logger       *slog.Logger
	timeout      time.Duration
	maxSteps     int
	maxCallDepth int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // active runs by name
	wg      sync.WaitGroup
}

// New creates a runner over s.
func New(s *store.Store, opts ...Option) *Runner {
	r := &Runner{
		store:   s,
		logger:  slog.Default(),
		cancels: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Runner) Store() *store.Store {
	return r.store
}

// Validate runs the static stages over source.
func Validate(source string) error {
	if diags := lox.Check(source); len(diags) > 0 {
		return &ValidationError{Diagnostics: diags}
	}
	return nil
}

// Deploy validates source and stores it as a new script under parent.
func (r *Runner) Deploy(parent, scriptID, source, description string) (*store.Script, error) {
	if err := Validate(source); err != nil {
		return nil, err
	}
	sc, err := r.store.CreateScript(parent, scriptID, source, description)
	if err != nil {
		return nil, err
	}
	r.logger.Info("script deployed", "name", sc.Name, "revision", sc.RevisionID)
	return sc, nil
}

// Update validates a new source (if any) and replaces the script's.
func (r *Runner) Update(name, source, description string) (*store.Script, error) {
	if source != "" {
		if err := Validate(source); err != nil {
			return nil, err
		}
	}
	return r.store.UpdateScript(name, source, description)
}

// Start creates a run of the named script and executes it in the
// background. The returned run is still active.
func (r *Runner) Start(scriptName, argument string) (*store.Run, error) {
	sc, err := r.store.GetScript(scriptName)
	if err != nil {
		return nil, err
	}
	run, err := r.store.CreateRun(scriptName, argument)
	if err != nil {
		return nil, err
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	r.mu.Lock()
	r.cancels[run.Name] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.forget(run.Name)
		r.execute(ctx, run.Name, sc.Source, argument)
	}()
	return run, nil
}

func (r *Runner) forget(name string) {
	r.mu.Lock()
	cancel, ok := r.cancels[name]
	delete(r.cancels, name)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *Runner) execute(ctx context.Context, name, source, argument string) {
	start := time.Now()
	out := r.run(ctx, source, argument)

	var err error
	if out.Error == nil {
		err = r.store.CompleteRun(name, out.Output)
	} else {
		payload, _ := json.Marshal(out.Error)
		err = r.store.FailRun(name, out.Output, string(payload))
	}

	switch {
	case errors.Is(err, store.ErrNotActive):
		r.logger.Info("run finished after cancellation", "name", name)
	case err != nil:
		r.logger.Error("recording run result", "name", name, "error", err)
	case out.Error != nil:
		r.logger.Info("run failed", "name", name, "error", out.Error.String(), "elapsed", time.Since(start))
	default:
		r.logger.Info("run succeeded", "name", name, "elapsed", time.Since(start))
	}
}

// Run executes source synchronously with the runner's limits and returns
// what it printed together with any failure.
func (r *Runner) Run(ctx context.Context, source, argument string) Outcome {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.run(ctx, source, argument)
}

func (r *Runner) run(ctx context.Context, source, argument string) Outcome {
	var buf bytes.Buffer
	sess := lox.NewSession(
		lox.WithOutput(&buf),
		lox.WithErrorOutput(io.Discard),
		lox.WithLogger(r.logger),
		lox.WithMaxSteps(r.maxSteps),
		lox.WithMaxCallDepth(r.maxCallDepth),
	)
	sess.Define(ArgumentGlobal, ArgumentValue(argument))

	res := sess.Run(ctx, source)
	out := Outcome{Output: buf.String(), Diagnostics: res.Diagnostics}
	switch {
	case res.RuntimeErr != nil:
		p := res.RuntimeErr.ToPayload()
		out.Error = &p
	case res.Static():
		out.Error = &types.Payload{
			Message: res.Error().Error(),
			Line:    res.Diagnostics[0].Line,
			Tags:    []string{"ValidationError"},
		}
	case errors.Is(res.Err, context.DeadlineExceeded):
		out.Error = &types.Payload{
			Message: fmt.Sprintf("Run exceeded timeout of %s.", r.timeout),
			Tags:    []string{types.TagResourceLimitError},
		}
	case res.Err != nil:
		out.Error = &types.Payload{Message: "Run cancelled.", Tags: []string{"CancelledError"}}
	}
	return out
}

// Cancel stops an active run and marks it cancelled.
func (r *Runner) Cancel(name string) (*store.Run, error) {
	run, err := r.store.CancelRun(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if cancel, ok := r.cancels[name]; ok {
		cancel()
	}
	r.mu.Unlock()
	r.logger.Info("run cancelled", "name", name)
	return run, nil
}

// Active returns the number of runs still executing.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels all active runs and waits for them.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

var validScriptID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidScriptID reports whether id can name a script.
func ValidScriptID(id string) bool {
	return validScriptID.MatchString(id) && len(id) <= 128
}

// LoadDir deploys every .lox file in dir under parent. The file name
// without extension, lowercased, becomes the script ID. Files that are
// unreadable, misnamed or invalid are skipped with a warning.
func (r *Runner) LoadDir(dir, parent string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading scripts directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".lox" {
			continue
		}

		base := strings.TrimSuffix(name, ext)
		scriptID := strings.ToLower(base)
		if scriptID != base {
			r.logger.Warn("lowercased script ID", "id", scriptID, "file", name)
		}
		if !ValidScriptID(scriptID) {
			r.logger.Warn("skipping file with invalid script ID", "file", name, "id", scriptID)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			r.logger.Warn("could not read script", "file", name, "error", err)
			continue
		}

		if _, err := r.Deploy(parent, scriptID, string(data), ""); err != nil {
			r.logger.Warn("could not deploy script", "file", name, "error", err)
			continue
		}
		loaded++
	}

	r.logger.Info("loaded scripts", "count", loaded, "dir", dir)
	return loaded, nil
}
