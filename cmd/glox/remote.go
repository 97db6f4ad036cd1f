package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/lemonberrylabs/glox/pkg/client"
	"github.com/spf13/cobra"
)

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Work with scripts on a running glox host",
	}
	cmd.AddCommand(newRemoteRunCmd(a))
	return cmd
}

func newRemoteRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Deploy a file to the host, run it and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = envOrDefault("GLOX_HOST", fmt.Sprintf("localhost:%d", a.cfg.Server.GRPCPort))
			}
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				id = scriptIDFor(args[0])
			}
			argument, _ := cmd.Flags().GetString("argument")

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			c, err := client.Dial(ctx, addr, a.cfg.Server.Parent())
			if err != nil {
				return err
			}
			defer c.Close()

			exec, err := c.Run(ctx, id, string(src), argument)
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, exec.GetResult())

			switch exec.GetState() {
			case executionspb.Execution_SUCCEEDED:
				return nil
			case executionspb.Execution_FAILED:
				fmt.Fprintln(a.stderr, exec.GetError().GetPayload())
				return &exitError{code: exitRuntime}
			default:
				fmt.Fprintln(a.stderr, "run ended in state", exec.GetState())
				return &exitError{code: exitRuntime}
			}
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "Host gRPC address (default localhost:<grpc_port>, env GLOX_HOST)")
	f.String("id", "", "Script ID (default the file name without extension)")
	f.String("argument", "", "Value bound to the global 'argument'")
	return cmd
}

// scriptIDFor derives a script ID from a file path.
func scriptIDFor(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
