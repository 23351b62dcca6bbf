// Package validator is the top-level validate(input) surface over compiled
// rule sets.
//
// Program compiles a rule once and runs it any number of times, including
// concurrently. Validator, RecordValidator and SequenceValidator build on
// Program for the single-value, per-field and per-element shapes.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/rules"
	"github.com/solatis/ruleblocks/internal/types"
)

// Result is the outcome of one validation pass.
type Result struct {
	OK       bool
	Errors   []execution.ErrorEntry
	Captures map[string]any
}

// Checker is the validate(input) contract shared by Program, RecordValidator
// and SequenceValidator.
type Checker interface {
	Validate(input any) Result
	Fingerprint() string
}

// Option configures compilation.
type Option func(*options)

type options struct {
	limits types.Limits
	caps   blocks.Capabilities
	logger *slog.Logger
}

// WithLimits overrides the serialization limits.
func WithLimits(limits types.Limits) Option {
	return func(o *options) { o.limits = limits }
}

// WithCapabilities sets the lookup handle exposed to leaves through the context.
func WithCapabilities(caps blocks.Capabilities) Option {
	return func(o *options) { o.caps = caps }
}

// WithLogger sets the logger for compile and run summaries. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{limits: types.DefaultLimits()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Program is a compiled rule set. The serialized set is read-only, so a
// Program is safe for concurrent use.
type Program struct {
	set         *blocks.Set
	caps        blocks.Capabilities
	logger      *slog.Logger
	fingerprint string
}

// Compile serializes rule into a Program.
func Compile(rule rules.Rule, opts ...Option) (*Program, error) {
	if rule == nil {
		return nil, fmt.Errorf("compile: %w", types.ErrInvalidRule)
	}
	o := buildOptions(opts)

	set, err := blocks.SerializeWithLimits(rule.ToBlock(), o.limits)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", rule.ResolvedName(), err)
	}

	p := &Program{
		set:         set,
		caps:        o.caps,
		logger:      o.logger,
		fingerprint: set.Fingerprint(),
	}
	p.logger.Debug("compiled rule set",
		"name", rule.ResolvedName(),
		"blocks", set.Len(),
		"start_hooks", len(set.BlocksWithStart()),
		"end_hooks", len(set.BlocksWithEnd()),
		"fingerprint", p.fingerprint)
	return p, nil
}

// Set returns the serialized block set.
func (p *Program) Set() *blocks.Set { return p.set }

// Fingerprint returns the CID of the set's canonical description.
func (p *Program) Fingerprint() string { return p.fingerprint }

// Run validates input with a fresh context and fresh aggregators.
func (p *Program) Run(input any) Result {
	return p.RunWithExtras(input, nil)
}

// Validate is Run. Program, RecordValidator and SequenceValidator share it.
func (p *Program) Validate(input any) Result {
	return p.Run(input)
}

// RunWithExtras is Run with an auxiliary value threaded to every callable.
func (p *Program) RunWithExtras(input, extras any) Result {
	storage := execution.NewStorage(p.set, p.caps)
	captures, errs := execution.NewCaptureAggregator(), execution.NewErrorAggregator()

	ok := execution.ExecuteWithExtras(input, extras, p.set, storage, captures, errs)

	p.logger.Debug("validation run", "ok", ok, "errors", errs.Len(), "captures", captures.Len())
	return Result{OK: ok, Errors: errs.Entries(), Captures: captures.Map()}
}

// RunBatch validates inputs in parallel and returns results in input order.
// workers <= 0 means GOMAXPROCS. Cancelling ctx stops scheduling new inputs
// and returns ctx's error.
func (p *Program) RunBatch(ctx context.Context, inputs []any, workers int) ([]Result, error) {
	results, err := ValidateBatch(ctx, p, inputs, workers)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("validation batch", "inputs", len(inputs), "workers", workers)
	return results, nil
}

// ValidateBatch runs c over inputs on a bounded pool, preserving input order.
// c must be safe for concurrent use; Program and the composite validators are.
func ValidateBatch(ctx context.Context, c Checker, inputs []any, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(inputs))

	wp := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		wp.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.Validate(input)
			return nil
		})
	}

	if err := wp.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
