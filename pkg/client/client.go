// Package client talks to a running glox host over gRPC using the official
// Cloud Workflows Go client libraries.
package client

import (
	"context"
	"fmt"
	"time"

	workflows "cloud.google.com/go/workflows/apiv1"
	"cloud.google.com/go/workflows/apiv1/workflowspb"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// DefaultPollInterval is how often Wait checks a run's state.
const DefaultPollInterval = 100 * time.Millisecond

// Client deploys and executes scripts on a glox host.
type Client struct {
	workflows  *workflows.Client
	executions *executions.Client
	parent     string
	poll       time.Duration
}

// Dial connects to the host's gRPC endpoint at addr. Scripts are created
// under parent ("projects/{p}/locations/{l}").
func Dial(ctx context.Context, addr, parent string) (*Client, error) {
	// The host is local and unauthenticated: plaintext transport, no
	// credentials lookup.
	opts := []option.ClientOption{
		option.WithEndpoint(addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}

	wf, err := workflows.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("workflows client: %w", err)
	}
	ex, err := executions.NewClient(ctx, opts...)
	if err != nil {
		wf.Close()
		return nil, fmt.Errorf("executions client: %w", err)
	}

	return &Client{
		workflows:  wf,
		executions: ex,
		parent:     parent,
		poll:       DefaultPollInterval,
	}, nil
}

// SetPollInterval changes how often Wait polls.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.poll = d
	}
}

// Close releases both underlying connections.
func (c *Client) Close() error {
	werr := c.workflows.Close()
	if err := c.executions.Close(); err != nil {
		return err
	}
	return werr
}

// ScriptName returns the full resource name of a script ID.
func (c *Client) ScriptName(id string) string {
	return c.parent + "/workflows/" + id
}

// Deploy creates the script, or replaces its source if it already exists.
func (c *Client) Deploy(ctx context.Context, id, source string) (*workflowspb.Workflow, error) {
	op, err := c.workflows.CreateWorkflow(ctx, &workflowspb.CreateWorkflowRequest{
		Parent:     c.parent,
		WorkflowId: id,
		Workflow: &workflowspb.Workflow{
			SourceCode: &workflowspb.Workflow_SourceContents{SourceContents: source},
		},
	})
	if status.Code(err) == codes.AlreadyExists {
		return c.update(ctx, id, source)
	}
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", id, err)
	}
	wf, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("deploy %s wait: %w", id, err)
	}
	return wf, nil
}

func (c *Client) update(ctx context.Context, id, source string) (*workflowspb.Workflow, error) {
	op, err := c.workflows.UpdateWorkflow(ctx, &workflowspb.UpdateWorkflowRequest{
		Workflow: &workflowspb.Workflow{
			Name:       c.ScriptName(id),
			SourceCode: &workflowspb.Workflow_SourceContents{SourceContents: source},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	wf, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("update %s wait: %w", id, err)
	}
	return wf, nil
}

// Execute starts a run of the script. The run proceeds on the host; use
// Wait to collect its result.
func (c *Client) Execute(ctx context.Context, id, argument string) (*executionspb.Execution, error) {
	exec, err := c.executions.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    c.ScriptName(id),
		Execution: &executionspb.Execution{Argument: argument},
	})
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", id, err)
	}
	return exec, nil
}

// Wait polls the run until it is no longer active or ctx ends.
func (c *Client) Wait(ctx context.Context, name string) (*executionspb.Execution, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		exec, err := c.executions.GetExecution(ctx, &executionspb.GetExecutionRequest{Name: name})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", name, err)
		}
		if exec.GetState() != executionspb.Execution_ACTIVE {
			return exec, nil
		}

		select {
		case <-ctx.Done():
			return exec, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cancel stops an active run.
func (c *Client) Cancel(ctx context.Context, name string) (*executionspb.Execution, error) {
	exec, err := c.executions.CancelExecution(ctx, &executionspb.CancelExecutionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("cancel %s: %w", name, err)
	}
	return exec, nil
}

// Run deploys source as id, executes it and waits for the result.
func (c *Client) Run(ctx context.Context, id, source, argument string) (*executionspb.Execution, error) {
	if _, err := c.Deploy(ctx, id, source); err != nil {
		return nil, err
	}
	exec, err := c.Execute(ctx, id, argument)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, exec.GetName())
}
