// Package grpcapi implements gRPC services for hosted Lox scripts, allowing
// use of the official Cloud Workflows Go client libraries against the host.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	longrunningpb "cloud.google.com/go/longrunning/autogen/longrunningpb"
	workflowspb "cloud.google.com/go/workflows/apiv1/workflowspb"
	executionspb "cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/lemonberrylabs/glox/pkg/runner"
	"github.com/lemonberrylabs/glox/pkg/store"
)

// Server implements the Workflows, Executions and Operations gRPC services.
type Server struct {
	workflowspb.UnimplementedWorkflowsServer
	executionspb.UnimplementedExecutionsServer
	longrunningpb.UnimplementedOperationsServer

	runner *runner.Runner
	logger *slog.Logger
	grpc   *grpc.Server

	mu         sync.Mutex
	operations map[string]*longrunningpb.Operation
}

// New creates a new gRPC server executing scripts through r.
func New(r *runner.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		runner:     r,
		logger:     logger,
		operations: make(map[string]*longrunningpb.Operation),
	}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logUnary))
	workflowspb.RegisterWorkflowsServer(gs, srv)
	executionspb.RegisterExecutionsServer(gs, srv)
	longrunningpb.RegisterOperationsServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// ServeListener serves gRPC requests on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug("grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"elapsed", time.Since(start),
	)
	return resp, err
}

// --- Workflows Service ---

func (s *Server) CreateWorkflow(ctx context.Context, req *workflowspb.CreateWorkflowRequest) (*longrunningpb.Operation, error) {
	if req.GetWorkflowId() == "" {
		return nil, status.Error(codes.InvalidArgument, "workflow_id is required")
	}
	if !runner.ValidScriptID(req.GetWorkflowId()) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid workflow_id %q", req.GetWorkflowId())
	}
	wfProto := req.GetWorkflow()
	if wfProto == nil {
		return nil, status.Error(codes.InvalidArgument, "workflow is required")
	}
	src := wfProto.GetSourceContents()
	if src == "" {
		return nil, status.Error(codes.InvalidArgument, "source_contents is required")
	}

	sc, err := s.runner.Deploy(req.GetParent(), req.GetWorkflowId(), src, wfProto.GetDescription())
	if err != nil {
		return nil, toStatus(err)
	}

	return s.doneOperation("create-"+sc.ID(), scriptToProto(sc))
}

func (s *Server) GetWorkflow(ctx context.Context, req *workflowspb.GetWorkflowRequest) (*workflowspb.Workflow, error) {
	sc, err := s.runner.Store().GetScript(req.GetName())
	if err != nil {
		return nil, toStatus(err)
	}
	return scriptToProto(sc), nil
}

func (s *Server) ListWorkflows(ctx context.Context, req *workflowspb.ListWorkflowsRequest) (*workflowspb.ListWorkflowsResponse, error) {
	scripts := s.runner.Store().ListScripts(req.GetParent())

	pbWorkflows := make([]*workflowspb.Workflow, len(scripts))
	for i, sc := range scripts {
		pbWorkflows[i] = scriptToProto(sc)
	}

	return &workflowspb.ListWorkflowsResponse{
		Workflows: pbWorkflows,
	}, nil
}

func (s *Server) UpdateWorkflow(ctx context.Context, req *workflowspb.UpdateWorkflowRequest) (*longrunningpb.Operation, error) {
	wfProto := req.GetWorkflow()
	if wfProto == nil {
		return nil, status.Error(codes.InvalidArgument, "workflow is required")
	}

	sc, err := s.runner.Update(wfProto.GetName(), wfProto.GetSourceContents(), wfProto.GetDescription())
	if err != nil {
		return nil, toStatus(err)
	}
	return s.doneOperation("update-"+sc.ID(), scriptToProto(sc))
}

func (s *Server) DeleteWorkflow(ctx context.Context, req *workflowspb.DeleteWorkflowRequest) (*longrunningpb.Operation, error) {
	name := req.GetName()
	sc, err := s.runner.Store().GetScript(name)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.runner.Store().DeleteScript(name); err != nil {
		return nil, toStatus(err)
	}

	op := &longrunningpb.Operation{
		Name: fmt.Sprintf("projects/-/locations/-/operations/delete-%s", sc.ID()),
		Done: true,
	}
	s.remember(op)
	return op, nil
}

// --- Executions Service ---

func (s *Server) CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest) (*executionspb.Execution, error) {
	run, err := s.runner.Start(req.GetParent(), req.GetExecution().GetArgument())
	if err != nil {
		return nil, toStatus(err)
	}
	return runToProto(run), nil
}

func (s *Server) GetExecution(ctx context.Context, req *executionspb.GetExecutionRequest) (*executionspb.Execution, error) {
	run, err := s.runner.Store().GetRun(req.GetName())
	if err != nil {
		return nil, toStatus(err)
	}
	return runToProto(run), nil
}

func (s *Server) ListExecutions(ctx context.Context, req *executionspb.ListExecutionsRequest) (*executionspb.ListExecutionsResponse, error) {
	runs := s.runner.Store().ListRuns(req.GetParent())

	pbExecs := make([]*executionspb.Execution, len(runs))
	for i, run := range runs {
		pbExecs[i] = runToProto(run)
	}

	return &executionspb.ListExecutionsResponse{
		Executions: pbExecs,
	}, nil
}

func (s *Server) CancelExecution(ctx context.Context, req *executionspb.CancelExecutionRequest) (*executionspb.Execution, error) {
	run, err := s.runner.Cancel(req.GetName())
	if err != nil {
		return nil, toStatus(err)
	}
	return runToProto(run), nil
}

// --- Operations Service (for official client LRO support) ---

// GetOperation returns a previously issued operation. All operations
// complete before they are returned, so polling always sees them done.
func (s *Server) GetOperation(ctx context.Context, req *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	s.mu.Lock()
	op, ok := s.operations[req.GetName()]
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "operation %q not found", req.GetName())
	}
	return op, nil
}

// --- Internal helpers ---

// toStatus maps store and validation errors to gRPC status errors.
// Validation failures carry one field violation per diagnostic.
func toStatus(err error) error {
	var verr *runner.ValidationError
	switch {
	case errors.As(err, &verr):
		br := &errdetails.BadRequest{}
		for _, d := range verr.Diagnostics {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       "source_contents",
				Description: d.String(),
			})
		}
		st, detailErr := status.New(codes.InvalidArgument, err.Error()).WithDetails(br)
		if detailErr != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		return st.Err()
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, store.ErrNotActive):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func scriptToProto(sc *store.Script) *workflowspb.Workflow {
	pb := &workflowspb.Workflow{
		Name:        sc.Name,
		Description: sc.Description,
		RevisionId:  sc.RevisionID,
		CreateTime:  timestamppb.New(sc.CreateTime),
		UpdateTime:  timestamppb.New(sc.UpdateTime),
		Labels:      sc.Labels,
	}

	switch sc.State {
	case store.ScriptActive:
		pb.State = workflowspb.Workflow_ACTIVE
	default:
		pb.State = workflowspb.Workflow_STATE_UNSPECIFIED
	}

	if sc.Source != "" {
		pb.SourceCode = &workflowspb.Workflow_SourceContents{
			SourceContents: sc.Source,
		}
	}

	return pb
}

func runToProto(run *store.Run) *executionspb.Execution {
	pb := &executionspb.Execution{
		Name:               run.Name,
		StartTime:          timestamppb.New(run.StartTime),
		Argument:           run.Argument,
		Result:             run.Output,
		WorkflowRevisionId: run.ScriptRevisionID,
	}

	switch run.State {
	case store.RunActive:
		pb.State = executionspb.Execution_ACTIVE
	case store.RunSucceeded:
		pb.State = executionspb.Execution_SUCCEEDED
	case store.RunFailed:
		pb.State = executionspb.Execution_FAILED
	case store.RunCancelled:
		pb.State = executionspb.Execution_CANCELLED
	default:
		pb.State = executionspb.Execution_STATE_UNSPECIFIED
	}

	if run.Error != nil {
		pb.Error = &executionspb.Execution_Error{
			Payload: run.Error.Payload,
			Context: run.Error.Context,
		}
	}

	if !run.EndTime.IsZero() {
		pb.EndTime = timestamppb.New(run.EndTime)
	}

	return pb
}

// doneOperation wraps a proto message in an already-completed LRO Operation
// and records it for GetOperation.
func (s *Server) doneOperation(name string, msg proto.Message) (*longrunningpb.Operation, error) {
	any, err := anypb.New(msg)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to marshal operation result: %v", err)
	}
	op := &longrunningpb.Operation{
		Name: fmt.Sprintf("projects/-/locations/-/operations/%s", name),
		Done: true,
		Result: &longrunningpb.Operation_Response{
			Response: any,
		},
	}
	s.remember(op)
	return op, nil
}

func (s *Server) remember(op *longrunningpb.Operation) {
	s.mu.Lock()
	s.operations[op.GetName()] = op
	s.mu.Unlock()
}
