// Package api implements the REST API for hosted Lox scripts. Resource
// paths follow the Cloud Workflows and Executions API surface.
package api

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lemonberrylabs/glox/pkg/lox"
	"github.com/lemonberrylabs/glox/pkg/printer"
	"github.com/lemonberrylabs/glox/pkg/runner"
	"github.com/lemonberrylabs/glox/pkg/store"
)

// Server is the REST API server.
type Server struct {
	app    *fiber.App
	runner *runner.Runner
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	requestLog io.Writer
}

// WithRequestLog writes one access log line per request to w.
func WithRequestLog(w io.Writer) Option {
	return func(c *serverConfig) { c.requestLog = w }
}

// New creates a new API server.
func New(r *runner.Runner, opts ...Option) *Server {
	var cfg serverConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := &Server{runner: r}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	if cfg.requestLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
			Output: cfg.requestLog,
		}))
	}

	// Scripts
	app.Post("/v1/projects/:project/locations/:location/workflows", srv.createScript)
	app.Get("/v1/projects/:project/locations/:location/workflows/:workflow", srv.getScript)
	app.Get("/v1/projects/:project/locations/:location/workflows", srv.listScripts)
	app.Patch("/v1/projects/:project/locations/:location/workflows/:workflow", srv.updateScript)
	app.Delete("/v1/projects/:project/locations/:location/workflows/:workflow", srv.deleteScript)

	// Runs
	app.Post("/v1/projects/:project/locations/:location/workflows/:workflow/executions", srv.createRun)
	app.Get("/v1/projects/:project/locations/:location/workflows/:workflow/executions/:execution", srv.getRun)
	app.Get("/v1/projects/:project/locations/:location/workflows/:workflow/executions", srv.listRuns)
	app.Post("/v1/projects/:project/locations/:location/workflows/:workflow/executions/:execution\\:cancel", srv.cancelRun)

	// One-shot
	app.Post("/v1/run", srv.run)
	app.Post("/v1/parse", srv.parse)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Script Handlers ---

type scriptRequest struct {
	SourceContents string            `json:"sourceContents"`
	Description    string            `json:"description"`
	Labels         map[string]string `json:"labels"`
}

func (s *Server) createScript(c *fiber.Ctx) error {
	parent := buildParent(c)
	scriptID := c.Query("workflowId")
	if scriptID == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "workflowId query parameter is required")
	}
	if !runner.ValidScriptID(scriptID) {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid workflowId %q", scriptID))
	}

	var req scriptRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.SourceContents == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "sourceContents is required")
	}

	sc, err := s.runner.Deploy(parent, scriptID, req.SourceContents, req.Description)
	if err != nil {
		return storeError(c, err)
	}

	// Returned directly rather than as a long-running operation; creation
	// completes immediately.
	return c.Status(fiber.StatusOK).JSON(scriptToJSON(sc))
}

func (s *Server) getScript(c *fiber.Ctx) error {
	sc, err := s.runner.Store().GetScript(buildScriptName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(scriptToJSON(sc))
}

func (s *Server) listScripts(c *fiber.Ctx) error {
	scripts := s.runner.Store().ListScripts(buildParent(c))

	items := make([]fiber.Map, len(scripts))
	for i, sc := range scripts {
		items[i] = scriptToJSON(sc)
	}

	return c.JSON(fiber.Map{
		"workflows": items,
	})
}

func (s *Server) updateScript(c *fiber.Ctx) error {
	name := buildScriptName(c)

	var req scriptRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	sc, err := s.runner.Update(name, req.SourceContents, req.Description)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"name":     fmt.Sprintf("projects/-/locations/-/operations/update-%s", c.Params("workflow")),
		"done":     true,
		"response": scriptToJSON(sc),
	})
}

func (s *Server) deleteScript(c *fiber.Ctx) error {
	if err := s.runner.Store().DeleteScript(buildScriptName(c)); err != nil {
		return storeError(c, err)
	}

	return c.JSON(fiber.Map{
		"name": fmt.Sprintf("projects/-/locations/-/operations/delete-%s", c.Params("workflow")),
		"done": true,
	})
}

// --- Run Handlers ---

type runRequest struct {
	Argument string `json:"argument"`
}

func (s *Server) createRun(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	run, err := s.runner.Start(buildScriptName(c), req.Argument)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(runToJSON(run))
}

func (s *Server) getRun(c *fiber.Ctx) error {
	run, err := s.runner.Store().GetRun(buildRunName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	runs := s.runner.Store().ListRuns(buildScriptName(c))

	items := make([]fiber.Map, len(runs))
	for i, run := range runs {
		items[i] = runToJSON(run)
	}

	return c.JSON(fiber.Map{
		"executions": items,
	})
}

func (s *Server) cancelRun(c *fiber.Ctx) error {
	run, err := s.runner.Cancel(buildRunName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

// --- One-shot Handlers ---

type sourceRequest struct {
	Source   string `json:"source"`
	Argument string `json:"argument"`
}

func (s *Server) run(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	return c.JSON(s.runner.Run(c.UserContext(), req.Source, req.Argument))
}

func (s *Server) parse(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	stmts, diags := lox.Parse(req.Source)
	resp := fiber.Map{}
	if len(diags) > 0 {
		resp["diagnostics"] = diags
	} else {
		resp["ast"] = printer.Program(stmts)
	}
	return c.JSON(resp)
}

// --- Helpers ---

func apiError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// storeError maps store and validation errors onto the error envelope.
func storeError(c *fiber.Ctx, err error) error {
	var verr *runner.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    fiber.StatusBadRequest,
				"message": err.Error(),
				"status":  "INVALID_ARGUMENT",
				"details": verr.Diagnostics,
			},
		})
	case errors.Is(err, store.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return apiError(c, fiber.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, store.ErrNotActive):
		return apiError(c, fiber.StatusBadRequest, "FAILED_PRECONDITION", err.Error())
	default:
		return apiError(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func buildParent(c *fiber.Ctx) string {
	return fmt.Sprintf("projects/%s/locations/%s", c.Params("project"), c.Params("location"))
}

func buildScriptName(c *fiber.Ctx) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s",
		c.Params("project"), c.Params("location"), c.Params("workflow"))
}

func buildRunName(c *fiber.Ctx) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s/executions/%s",
		c.Params("project"), c.Params("location"), c.Params("workflow"), c.Params("execution"))
}

func scriptToJSON(sc *store.Script) fiber.Map {
	return fiber.Map{
		"name":           sc.Name,
		"description":    sc.Description,
		"state":          sc.State,
		"revisionId":     sc.RevisionID,
		"createTime":     sc.CreateTime.Format(time.RFC3339),
		"updateTime":     sc.UpdateTime.Format(time.RFC3339),
		"sourceContents": sc.Source,
	}
}

func runToJSON(run *store.Run) fiber.Map {
	result := fiber.Map{
		"name":               run.Name,
		"state":              run.State,
		"startTime":          run.StartTime.Format(time.RFC3339),
		"workflowRevisionId": run.ScriptRevisionID,
	}

	if run.Argument != "" {
		result["argument"] = run.Argument
	}
	if run.Output != "" {
		result["result"] = run.Output
	}
	if run.Error != nil {
		result["error"] = fiber.Map{
			"payload": run.Error.Payload,
			"context": run.Error.Context,
		}
	}
	if !run.EndTime.IsZero() {
		result["endTime"] = run.EndTime.Format(time.RFC3339)
	}

	return result
}
