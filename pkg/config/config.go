// Package config loads glox settings from a YAML file and the environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete glox configuration.
type Config struct {
	Interpreter Interpreter `yaml:"interpreter"`
	REPL        REPL        `yaml:"repl"`
	Server      Server      `yaml:"server"`
	Log         Log         `yaml:"log"`
}

// Interpreter holds the runtime limits.
type Interpreter struct {
	MaxCallDepth int `yaml:"max_call_depth"`
	MaxSteps     int `yaml:"max_steps"` // 0 = unlimited
}

// REPL holds interactive prompt settings.
type REPL struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
}

// Server holds script host settings.
type Server struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	GRPCPort   int           `yaml:"grpc_port"`
	Project    string        `yaml:"project"`
	Location   string        `yaml:"location"`
	ScriptsDir string        `yaml:"scripts_dir"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	MaxSteps   int           `yaml:"max_steps"` // per-run budget for hosted scripts
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Interpreter: Interpreter{MaxCallDepth: 512},
		REPL:        REPL{Prompt: "> ", HistoryFile: ".glox_history"},
		Server: Server{
			Host:       "0.0.0.0",
			Port:       8787,
			GRPCPort:   8788,
			Project:    "my-project",
			Location:   "us-central1",
			RunTimeout: 30 * time.Second,
			MaxSteps:   1_000_000,
		},
		Log: Log{Level: "info"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// non-empty) and then with environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("HOST", &c.Server.Host)
	str("PROJECT", &c.Server.Project)
	str("LOCATION", &c.Server.Location)
	str("SCRIPTS_DIR", &c.Server.ScriptsDir)
	str("GLOX_LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*int{
		"PORT":                &c.Server.Port,
		"GRPC_PORT":           &c.Server.GRPCPort,
		"GLOX_MAX_CALL_DEPTH": &c.Interpreter.MaxCallDepth,
		"GLOX_MAX_STEPS":      &c.Interpreter.MaxSteps,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Interpreter.MaxCallDepth < 1 {
		return fmt.Errorf("interpreter.max_call_depth must be positive, got %d", c.Interpreter.MaxCallDepth)
	}
	if c.Interpreter.MaxSteps < 0 || c.Server.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.GRPCPort <= 0 {
		return fmt.Errorf("server ports must be positive")
	}
	if c.Server.RunTimeout <= 0 {
		return fmt.Errorf("server.run_timeout must be positive, got %s", c.Server.RunTimeout)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCAddr returns host:port for the gRPC server.
func (s Server) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort)
}

// Parent returns the resource parent path for the configured project and
// location.
func (s Server) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", s.Project, s.Location)
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
