package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/rules"
	"github.com/solatis/ruleblocks/internal/types"
)

// NoBlock is the BlockIndex of errors raised by a composite validator itself
// rather than by a block.
const NoBlock = -1

// FieldRule binds a rule to a record field.
type FieldRule struct {
	Field string
	Rule  rules.Rule
}

type fieldProgram struct {
	field string
	prog  *Program
}

// RecordValidator validates a map[string]any field by field. For every
// declared field it runs the field's start hooks, its main tree when the
// field is present, then its end hooks; absent fields therefore still reach
// Required and CountBetween checks. Errors merge in declaration order.
// Fields in the input without a rule are ignored.
type RecordValidator struct {
	fields []fieldProgram
}

// NewRecord compiles one program per field. A rule without a name compiles
// under its field's name so its errors are attributed to it; the rule itself
// is left unnamed, so one rule value may serve several fields.
func NewRecord(fields []FieldRule, opts ...Option) (*RecordValidator, error) {
	seen := make(map[string]bool, len(fields))
	out := make([]fieldProgram, 0, len(fields))
	for _, f := range fields {
		if f.Rule == nil || seen[f.Field] {
			return nil, fmt.Errorf("field %q: %w", f.Field, types.ErrInvalidRule)
		}
		seen[f.Field] = true

		prog, err := compileField(f, opts)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Field, err)
		}
		out = append(out, fieldProgram{field: f.Field, prog: prog})
	}
	return &RecordValidator{fields: out}, nil
}

// compileField compiles f.Rule, naming it after the field while its blocks
// are built. The block tree snapshots names, so the program keeps the field
// name after the rule's own name is restored.
func compileField(f FieldRule, opts []Option) (*Program, error) {
	if f.Rule.Name() != "" {
		return Compile(f.Rule, opts...)
	}
	f.Rule.SetName(f.Field)
	defer f.Rule.UnsetName()
	return Compile(f.Rule, opts...)
}

// Fields returns the declared field names in order.
func (r *RecordValidator) Fields() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.field
	}
	return names
}

// Fingerprint combines the field names and their programs' fingerprints.
func (r *RecordValidator) Fingerprint() string {
	var b strings.Builder
	for _, f := range r.fields {
		fmt.Fprintf(&b, "%s=%s\n", f.field, f.prog.fingerprint)
	}
	return blocks.FingerprintText(b.String())
}

// Validate runs every field program over input. Safe for concurrent use.
func (r *RecordValidator) Validate(input any) Result {
	record, ok := asRecord(input)
	if !ok {
		return notContainer(input)
	}

	captures, errs := execution.NewCaptureAggregator(), execution.NewErrorAggregator()
	allOK := true
	for _, f := range r.fields {
		storage := execution.NewStorage(f.prog.set, f.prog.caps)

		fieldOK := execution.ExecuteStarts(f.prog.set, storage, errs)
		if value, present := record[f.field]; present {
			fieldOK = execution.ExecuteBlock(value, blocks.FirstBlockIndex, nil, f.prog.set, storage, captures, errs) && fieldOK
		}
		fieldOK = execution.ExecuteEnds(f.prog.set, storage, errs) && fieldOK

		allOK = allOK && fieldOK
	}
	return Result{OK: allOK, Errors: errs.Entries(), Captures: captures.Map()}
}

func asRecord(input any) (map[string]any, bool) {
	switch v := input.(type) {
	case map[string]any:
		return v, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(input)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func notContainer(input any) Result {
	return Result{
		OK: false,
		Errors: []execution.ErrorEntry{{
			Name:       "",
			BlockIndex: NoBlock,
			Value:      input,
			Code:       types.CodeIsArray,
			Template:   types.MsgIsArray,
			Params:     []any{},
		}},
		Captures: map[string]any{},
	}
}
