// Package store provides in-memory storage for scripts and their runs.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sentinel errors, matched with errors.Is by the API layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotActive     = errors.New("not active")
)

// ScriptState represents the state of a stored script.
type ScriptState string

const (
	ScriptActive ScriptState = "ACTIVE"
)

// RunState represents the state of a script run.
type RunState string

const (
	RunActive    RunState = "ACTIVE"
	RunSucceeded RunState = "SUCCEEDED"
	RunFailed    RunState = "FAILED"
	RunCancelled RunState = "CANCELLED"
)

// Script is a stored Lox program.
type Script struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	State       ScriptState       `json:"state"`
	RevisionID  string            `json:"revisionId"`
	CreateTime  time.Time         `json:"createTime"`
	UpdateTime  time.Time         `json:"updateTime"`
	Source      string            `json:"sourceContents"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ID returns the last path segment of the script name.
func (s *Script) ID() string {
	return s.Name[strings.LastIndex(s.Name, "/")+1:]
}

// Run is one execution of a script.
type Run struct {
	Name             string    `json:"name"`
	State            RunState  `json:"state"`
	Argument         string    `json:"argument,omitempty"`
	Output           string    `json:"result,omitempty"`
	Error            *RunError `json:"error,omitempty"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime,omitempty"`
	ScriptRevisionID string    `json:"workflowRevisionId"`

	seq int64
}

// ID returns the last path segment of the run name.
func (r *Run) ID() string {
	return r.Name[strings.LastIndex(r.Name, "/")+1:]
}

// Script returns the name of the script the run belongs to.
func (r *Run) Script() string {
	return r.Name[:strings.LastIndex(r.Name, "/executions/")]
}

// Duration is the elapsed run time, measured to now while still active.
func (r *Run) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// RunError describes why a run failed.
type RunError struct {
	Payload string `json:"payload"`
	Context string `json:"context,omitempty"`
}

// Store is a thread-safe in-memory storage for scripts and runs. Getters
// return copies, so callers may read them while runs progress.
type Store struct {
	mu      sync.RWMutex
	scripts map[string]*Script
	runs    map[string]*Run

	// Counters for generating unique IDs
	runCounter int64
	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		scripts: make(map[string]*Script),
		runs:    make(map[string]*Run),
	}
}

// CreateScript stores a new script under parent.
func (s *Store) CreateScript(parent, scriptID, source, description string) (*Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fmt.Sprintf("%s/workflows/%s", parent, scriptID)
	if _, exists := s.scripts[name]; exists {
		return nil, fmt.Errorf("script '%s': %w", name, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	sc := &Script{
		Name:        name,
		Description: description,
		State:       ScriptActive,
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
		Source:      source,
	}
	s.scripts[name] = sc
	cp := *sc
	return &cp, nil
}

// GetScript retrieves a script by its full name.
func (s *Store) GetScript(name string) (*Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scripts[name]
	if !ok {
		return nil, fmt.Errorf("script '%s': %w", name, ErrNotFound)
	}
	cp := *sc
	return &cp, nil
}

// ListScripts returns all scripts under a parent, ordered by name.
func (s *Store) ListScripts(parent string) []*Script {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Script
	prefix := parent + "/workflows/"
	for name, sc := range s.scripts {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			cp := *sc
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateScript replaces a script's source and bumps its revision. Empty
// arguments leave the corresponding field unchanged.
func (s *Store) UpdateScript(name, source, description string) (*Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scripts[name]
	if !ok {
		return nil, fmt.Errorf("script '%s': %w", name, ErrNotFound)
	}

	s.revCounter++
	if source != "" {
		sc.Source = source
	}
	if description != "" {
		sc.Description = description
	}
	sc.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	sc.UpdateTime = time.Now()

	cp := *sc
	return &cp, nil
}

// DeleteScript removes a script. Its runs are kept for inspection.
func (s *Store) DeleteScript(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scripts[name]; !ok {
		return fmt.Errorf("script '%s': %w", name, ErrNotFound)
	}
	delete(s.scripts, name)
	return nil
}

// CreateRun records a new active run of the named script.
func (s *Store) CreateRun(scriptName, argument string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scripts[scriptName]
	if !ok {
		return nil, fmt.Errorf("script '%s': %w", scriptName, ErrNotFound)
	}

	s.runCounter++
	name := fmt.Sprintf("%s/executions/run-%d", scriptName, s.runCounter)

	run := &Run{
		Name:             name,
		State:            RunActive,
		Argument:         argument,
		StartTime:        time.Now(),
		ScriptRevisionID: sc.RevisionID,
		seq:              s.runCounter,
	}
	s.runs[name] = run
	cp := *run
	return &cp, nil
}

// GetRun retrieves a run by name.
func (s *Store) GetRun(name string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[name]
	if !ok {
		return nil, fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	cp := *run
	return &cp, nil
}

// ListRuns returns the runs of a script, newest first.
func (s *Store) ListRuns(scriptName string) []*Run {
	return s.filterRuns(func(r *Run) bool {
		return strings.HasPrefix(r.Name, scriptName+"/executions/")
	})
}

// RecentRuns returns up to limit runs across all scripts, newest first.
func (s *Store) RecentRuns(limit int) []*Run {
	runs := s.filterRuns(func(*Run) bool { return true })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

func (s *Store) filterRuns(keep func(*Run) bool) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Run
	for _, run := range s.runs {
		if keep(run) {
			cp := *run
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq > result[j].seq })
	return result
}

// CompleteRun marks a run as succeeded with its captured output. Runs
// that were cancelled meanwhile stay cancelled.
func (s *Store) CompleteRun(name, output string) error {
	return s.finish(name, func(run *Run) {
		run.State = RunSucceeded
		run.Output = output
	})
}

// FailRun marks a run as failed. payload is the JSON failure description;
// output is whatever the program printed before failing.
func (s *Store) FailRun(name, output, payload string) error {
	return s.finish(name, func(run *Run) {
		run.State = RunFailed
		run.Output = output
		run.Error = &RunError{Payload: payload}
	})
}

func (s *Store) finish(name string, apply func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[name]
	if !ok {
		return fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	if run.State != RunActive {
		return fmt.Errorf("run '%s' (state: %s): %w", name, run.State, ErrNotActive)
	}
	apply(run)
	run.EndTime = time.Now()
	return nil
}

// CancelRun marks an active run as cancelled.
func (s *Store) CancelRun(name string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[name]
	if !ok {
		return nil, fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	if run.State != RunActive {
		return nil, fmt.Errorf("run '%s' (state: %s): %w", name, run.State, ErrNotActive)
	}

	run.State = RunCancelled
	run.EndTime = time.Now()
	cp := *run
	return &cp, nil
}
