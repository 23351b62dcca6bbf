package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/ruleblocks/internal/core/db"
	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/registry"
	"github.com/solatis/ruleblocks/internal/types"
	"github.com/solatis/ruleblocks/internal/validator"
)

// RunRecorder persists validation run reports. *db.Store implements it.
type RunRecorder interface {
	SaveRun(ctx context.Context, r db.RunReport) error
}

// ValidationService implements ValidationServer over a rule set registry.
type ValidationService struct {
	UnimplementedValidationServer
	registry     *registry.Registry
	recorder     RunRecorder
	maxBatchSize int
	workers      int
	logger       *slog.Logger
}

// ServiceOption configures a ValidationService.
type ServiceOption func(*ValidationService)

// WithRecorder persists every run through r.
func WithRecorder(r RunRecorder) ServiceOption {
	return func(s *ValidationService) { s.recorder = r }
}

// WithMaxBatchSize bounds ValidateBatch input counts.
func WithMaxBatchSize(n int) ServiceOption {
	return func(s *ValidationService) { s.maxBatchSize = n }
}

// WithWorkers caps ValidateBatch parallelism; 0 means GOMAXPROCS.
func WithWorkers(n int) ServiceOption {
	return func(s *ValidationService) { s.workers = n }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *ValidationService) { s.logger = logger }
}

const defaultMaxBatchSize = 1000

// NewValidationService creates the service. reg is required.
func NewValidationService(reg *registry.Registry, opts ...ServiceOption) (*ValidationService, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	s := &ValidationService{
		registry:     reg,
		maxBatchSize: defaultMaxBatchSize,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxBatchSize <= 0 {
		return nil, fmt.Errorf("max batch size must be positive, got %d", s.maxBatchSize)
	}
	return s, nil
}

// Validate runs one input against the named rule set.
func (s *ValidationService) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entry, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	input, ok := req.GetFields()["input"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "input is required")
	}

	result := entry.Validate(input.AsInterface())
	runID, err := s.record(ctx, entry, result)
	if err != nil {
		return nil, err
	}

	resp, err := structpb.NewStruct(resultMap(runID, result))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return resp, nil
}

// ValidateBatch runs every input against the named rule set, preserving order.
func (s *ValidationService) ValidateBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entry, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	list := req.GetFields()["inputs"].GetListValue()
	if list == nil {
		return nil, status.Error(codes.InvalidArgument, "inputs must be a list")
	}
	if n := len(list.GetValues()); n > s.maxBatchSize {
		return nil, status.Errorf(codes.InvalidArgument, "batch of %d inputs exceeds max_batch_size %d", n, s.maxBatchSize)
	}

	results, err := validator.ValidateBatch(ctx, entry.Checker, list.AsSlice(), s.workers)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}

	out := make([]any, len(results))
	for i, result := range results {
		runID, err := s.record(ctx, entry, result)
		if err != nil {
			return nil, err
		}
		out[i] = resultMap(runID, result)
	}

	resp, err := structpb.NewStruct(map[string]any{"results": out})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode results: %v", err)
	}
	return resp, nil
}

func (s *ValidationService) lookup(req *structpb.Struct) (*registry.Entry, error) {
	name := req.GetFields()["rule_set"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "rule_set is required")
	}
	entry, err := s.registry.Get(name)
	if err != nil {
		if errors.Is(err, types.ErrRuleSetNotFound) {
			return nil, status.Errorf(codes.NotFound, "rule set %q not found", name)
		}
		return nil, status.Errorf(codes.Internal, "lookup rule set: %v", err)
	}
	return entry, nil
}

// record assigns a run ID and saves the report when a recorder is set.
// Database errors map to UNAVAILABLE.
func (s *ValidationService) record(ctx context.Context, entry *registry.Entry, result validator.Result) (types.RunID, error) {
	report := db.NewRunReport(entry.Name, entry.Fingerprint, result.OK, result.Errors)
	if s.recorder != nil {
		if err := s.recorder.SaveRun(ctx, report); err != nil {
			s.logger.Error("failed to record run", "run_id", report.ID, "rule_set", entry.Name, "error", err)
			return "", status.Error(codes.Unavailable, "failed to record run")
		}
	}
	s.logger.Debug("validated", "run_id", report.ID, "rule_set", entry.Name, "ok", result.OK, "errors", len(result.Errors))
	return report.ID, nil
}

// resultMap renders a result as structpb-compatible values.
func resultMap(runID types.RunID, result validator.Result) map[string]any {
	errs := make([]any, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = errorMap(e)
	}
	captures := make(map[string]any, len(result.Captures))
	for name, v := range result.Captures {
		captures[name] = plain(v)
	}
	return map[string]any{
		"ok":       result.OK,
		"run_id":   string(runID),
		"errors":   errs,
		"captures": captures,
	}
}

func errorMap(e execution.ErrorEntry) map[string]any {
	return map[string]any{
		"name":        e.Name,
		"block_index": e.BlockIndex,
		"code":        int(e.Code),
		"code_name":   e.Code.String(),
		"template":    e.Template,
		"params":      plain(e.Params),
		"value":       plain(e.Value),
	}
}

// plain converts v to the JSON value model structpb accepts.
// Values JSON cannot encode render as their fmt string.
func plain(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}
