package main

import (
	"context"
	"fmt"

	"github.com/lemonberrylabs/glox/pkg/api"
	grpcapi "github.com/lemonberrylabs/glox/pkg/api/grpc"
	"github.com/lemonberrylabs/glox/pkg/config"
	"github.com/lemonberrylabs/glox/pkg/runner"
	"github.com/lemonberrylabs/glox/pkg/store"
	"github.com/lemonberrylabs/glox/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host scripts behind the REST API, gRPC API and web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServerFlags(cmd, &a.cfg.Server)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.Int("port", 0, "HTTP server port (default 8787, env PORT)")
	f.Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	f.String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	f.String("project", "", "Project ID for API paths (default my-project, env PROJECT)")
	f.String("location", "", "Location for API paths (default us-central1, env LOCATION)")
	f.String("scripts-dir", "", "Directory of .lox files to deploy at start (env SCRIPTS_DIR)")
	f.Duration("run-timeout", 0, "Wall-clock limit per run (default 30s)")
	return cmd
}

// applyServerFlags overrides the loaded settings with flags that were set.
func applyServerFlags(cmd *cobra.Command, s *config.Server) {
	f := cmd.Flags()
	if v, _ := f.GetInt("port"); v != 0 {
		s.Port = v
	}
	if v, _ := f.GetInt("grpc-port"); v != 0 {
		s.GRPCPort = v
	}
	if v, _ := f.GetString("host"); v != "" {
		s.Host = v
	}
	if v, _ := f.GetString("project"); v != "" {
		s.Project = v
	}
	if v, _ := f.GetString("location"); v != "" {
		s.Location = v
	}
	if v, _ := f.GetString("scripts-dir"); v != "" {
		s.ScriptsDir = v
	}
	if v, _ := f.GetDuration("run-timeout"); v > 0 {
		s.RunTimeout = v
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg.Server
	logger := a.logger

	r := runner.New(store.New(),
		runner.WithLogger(logger),
		runner.WithTimeout(cfg.RunTimeout),
		runner.WithMaxSteps(cfg.MaxSteps),
		runner.WithMaxCallDepth(a.cfg.Interpreter.MaxCallDepth),
	)
	server := api.New(r, api.WithRequestLog(a.stderr))

	if cfg.ScriptsDir != "" {
		if _, err := r.LoadDir(cfg.ScriptsDir, cfg.Parent()); err != nil {
			logger.Warn("failed to load scripts directory", "dir", cfg.ScriptsDir, "error", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Warn("web UI disabled due to template error", "error", rec)
			}
		}()
		web.New(r, cfg.Project, cfg.Location).Register(server.App())
	}()

	errCh := make(chan error, 2)

	grpcServer := grpcapi.New(r, logger)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		logger.Info("glox host listening", "addr", cfg.Addr(), "project", cfg.Project, "location", cfg.Location)
		if err := server.Listen(cfg.Addr()); err != nil {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server failed", "error", err)
	}

	grpcServer.GracefulStop()
	if serr := server.Shutdown(); serr != nil {
		logger.Error("error during shutdown", "error", serr)
	}
	r.Shutdown()
	return err
}
