package validator

import (
	"reflect"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/rules"
)

// SequenceValidator applies one rule set to every element of a slice. Start
// hooks run once before the first element and end hooks once after the last,
// sharing one context, so CountBetween counts elements.
type SequenceValidator struct {
	prog *Program
}

// NewSequence compiles the element rule.
func NewSequence(rule rules.Rule, opts ...Option) (*SequenceValidator, error) {
	prog, err := Compile(rule, opts...)
	if err != nil {
		return nil, err
	}
	return &SequenceValidator{prog: prog}, nil
}

// Fingerprint derives from the element program's fingerprint.
func (s *SequenceValidator) Fingerprint() string {
	return blocks.FingerprintText("sequence=" + s.prog.fingerprint + "\n")
}

// Validate runs the pass over every element of input. Safe for concurrent use.
func (s *SequenceValidator) Validate(input any) Result {
	elements, ok := asSequence(input)
	if !ok {
		return notContainer(input)
	}

	set := s.prog.set
	storage := execution.NewStorage(set, s.prog.caps)
	captures, errs := execution.NewCaptureAggregator(), execution.NewErrorAggregator()

	allOK := execution.ExecuteStarts(set, storage, errs)
	for _, element := range elements {
		allOK = execution.ExecuteBlock(element, blocks.FirstBlockIndex, nil, set, storage, captures, errs) && allOK
	}
	allOK = execution.ExecuteEnds(set, storage, errs) && allOK

	return Result{OK: allOK, Errors: errs.Entries(), Captures: captures.Map()}
}

func asSequence(input any) ([]any, bool) {
	switch v := input.(type) {
	case []any:
		return v, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(input)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
