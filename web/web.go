// Package web provides the embedded web UI for the glox script host.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/glox/pkg/lox"
	"github.com/lemonberrylabs/glox/pkg/printer"
	"github.com/lemonberrylabs/glox/pkg/runner"
	"github.com/lemonberrylabs/glox/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// recentLimit caps the runs shown on the dashboard.
const recentLimit = 10

// Handler serves the web UI pages.
type Handler struct {
	runner   *runner.Runner
	project  string
	location string
	funcMap  template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Project   string
	Location  string
	Data      any
}

// New creates a new web UI handler.
func New(r *runner.Runner, project, location string) *Handler {
	return &Handler{
		runner:   r,
		project:  project,
		location: location,
		funcMap: template.FuncMap{
			"shortName":  shortName,
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"duration":   duration,
			"stateClass": stateClass,
			"stateIcon":  stateIcon,
			"truncate":   truncate,
			"scriptID":   scriptID,
			"runID":      runID,
			"countLines": countLines,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data any) error {
	// Each page is parsed with the layout on its own so that the "title"
	// and "content" blocks of different pages never collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Project:   h.project,
		Location:  h.location,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/scripts", h.scriptList)
	app.Get("/ui/scripts/:id", h.scriptDetail)
	app.Post("/ui/scripts/:id/run", h.startRun)
	app.Get("/ui/runs", h.runList)
	app.Get("/ui/runs/:script/:run", h.runDetail)
	app.Post("/ui/runs/:script/:run/cancel", h.cancelRun)
	app.Get("/ui/playground", h.playground)
	app.Post("/ui/playground", h.playgroundRun)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Scripts        []*store.Script
	RecentRuns     []*runView
	ActiveCount    int
	SucceededCount int
	FailedCount    int
	CancelledCount int
}

type runView struct {
	*store.Run
	ScriptID string
	RunID    string
}

type scriptView struct {
	*store.Script
	ID          string
	RunCount    int
	ActiveCount int
}

type scriptDetailContent struct {
	Script *store.Script
	ID     string
	AST    string
	Runs   []*runView
}

type runListContent struct {
	Runs []*runView
}

type runDetailContent struct {
	Run      *store.Run
	ScriptID string
	RunID    string
}

type playgroundContent struct {
	Source  string
	Ran     bool
	Outcome runner.Outcome
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", h.project, h.location)
}

func (h *Handler) scriptName(id string) string {
	return h.parent() + "/workflows/" + id
}

func newRunView(r *store.Run) *runView {
	return &runView{Run: r, ScriptID: scriptID(r.Name), RunID: runID(r.Name)}
}

// runs returns every run of scripts under the handler's parent, newest first.
func (h *Handler) runs() []*runView {
	var views []*runView
	for _, r := range h.runner.Store().RecentRuns(0) {
		if strings.HasPrefix(r.Name, h.parent()+"/") {
			views = append(views, newRunView(r))
		}
	}
	return views
}

func (h *Handler) dashboard(c *fiber.Ctx) error {
	scripts := h.runner.Store().ListScripts(h.parent())
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].UpdateTime.After(scripts[j].UpdateTime)
	})

	content := dashboardContent{Scripts: scripts}
	all := h.runs()
	for _, r := range all {
		switch r.State {
		case store.RunActive:
			content.ActiveCount++
		case store.RunSucceeded:
			content.SucceededCount++
		case store.RunFailed:
			content.FailedCount++
		case store.RunCancelled:
			content.CancelledCount++
		}
	}
	if len(all) > recentLimit {
		all = all[:recentLimit]
	}
	content.RecentRuns = all

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) scriptList(c *fiber.Ctx) error {
	scripts := h.runner.Store().ListScripts(h.parent())

	views := make([]*scriptView, 0, len(scripts))
	for _, sc := range scripts {
		runs := h.runner.Store().ListRuns(sc.Name)
		active := 0
		for _, r := range runs {
			if r.State == store.RunActive {
				active++
			}
		}
		views = append(views, &scriptView{
			Script:      sc,
			ID:          sc.ID(),
			RunCount:    len(runs),
			ActiveCount: active,
		})
	}

	return h.render(c, "script_list.html", "scripts", views)
}

func (h *Handler) scriptDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	sc, err := h.runner.Store().GetScript(h.scriptName(id))
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Script '%s' not found", id),
		})
	}

	// Stored scripts always passed validation, so the parse is clean.
	stmts, _ := lox.Parse(sc.Source)

	var runs []*runView
	for _, r := range h.runner.Store().ListRuns(sc.Name) {
		runs = append(runs, newRunView(r))
	}

	return h.render(c, "script_detail.html", "scripts", scriptDetailContent{
		Script: sc,
		ID:     id,
		AST:    printer.Program(stmts),
		Runs:   runs,
	})
}

func (h *Handler) startRun(c *fiber.Ctx) error {
	id := c.Params("id")
	run, err := h.runner.Start(h.scriptName(id), c.FormValue("argument"))
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Script '%s' not found", id),
		})
	}
	return c.Redirect(fmt.Sprintf("/ui/runs/%s/%s", id, run.ID()))
}

func (h *Handler) runList(c *fiber.Ctx) error {
	return h.render(c, "run_list.html", "runs", runListContent{Runs: h.runs()})
}

func (h *Handler) runDetail(c *fiber.Ctx) error {
	sid, rid := c.Params("script"), c.Params("run")
	run, err := h.runner.Store().GetRun(h.scriptName(sid) + "/executions/" + rid)
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Run '%s' not found", rid),
		})
	}

	return h.render(c, "run_detail.html", "runs", runDetailContent{
		Run:      run,
		ScriptID: sid,
		RunID:    rid,
	})
}

func (h *Handler) cancelRun(c *fiber.Ctx) error {
	sid, rid := c.Params("script"), c.Params("run")
	_, err := h.runner.Cancel(h.scriptName(sid) + "/executions/" + rid)
	if errors.Is(err, store.ErrNotFound) {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Run '%s' not found", rid),
		})
	}
	// A run that already finished is simply shown as it ended.
	return c.Redirect(fmt.Sprintf("/ui/runs/%s/%s", sid, rid))
}

func (h *Handler) playground(c *fiber.Ctx) error {
	return h.render(c, "playground.html", "playground", playgroundContent{
		Source: "print \"Hello, world!\";",
	})
}

func (h *Handler) playgroundRun(c *fiber.Ctx) error {
	source := c.FormValue("source")
	return h.render(c, "playground.html", "playground", playgroundContent{
		Source:  source,
		Ran:     true,
		Outcome: h.runner.Run(c.UserContext(), source, c.FormValue("argument")),
	})
}

// --- Template Helpers ---

func shortName(fullName string) string {
	parts := strings.Split(fullName, "/")
	return parts[len(parts)-1]
}

func scriptID(name string) string {
	return segmentAfter(name, "workflows")
}

func runID(name string) string {
	return segmentAfter(name, "executions")
}

func segmentAfter(name, collection string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		if p == collection && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return name
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return fmt.Sprintf("%s (running)", formatDuration(time.Since(start)))
	}
	return formatDuration(end.Sub(start))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

func stateClass(state store.RunState) string {
	switch state {
	case store.RunActive:
		return "state-active"
	case store.RunSucceeded:
		return "state-succeeded"
	case store.RunFailed:
		return "state-failed"
	case store.RunCancelled:
		return "state-cancelled"
	default:
		return ""
	}
}

func stateIcon(state store.RunState) template.HTML {
	switch state {
	case store.RunActive:
		return "&#9654;"
	case store.RunSucceeded:
		return "&#10003;"
	case store.RunFailed:
		return "&#10007;"
	case store.RunCancelled:
		return "&#9632;"
	default:
		return "&#8226;"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}
