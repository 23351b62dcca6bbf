package validator

import (
	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/rules"
)

// Validator validates one input at a time and keeps the last pass's errors
// and captures. Both aggregators are reset at the start of every Validate
// call. Not safe for concurrent use; use Program.Run for that.
type Validator struct {
	prog     *Program
	storage  *execution.Storage
	captures *execution.CaptureAggregator
	errs     *execution.ErrorAggregator
}

// New compiles rule and wraps it in a Validator.
func New(rule rules.Rule, opts ...Option) (*Validator, error) {
	prog, err := Compile(rule, opts...)
	if err != nil {
		return nil, err
	}
	return FromProgram(prog), nil
}

// FromProgram wraps an already compiled program.
func FromProgram(prog *Program) *Validator {
	return &Validator{
		prog:     prog,
		storage:  execution.NewStorage(prog.set, prog.caps),
		captures: execution.NewCaptureAggregator(),
		errs:     execution.NewErrorAggregator(),
	}
}

// Validate runs one pass over input and reports whether it produced no errors.
func (v *Validator) Validate(input any) bool {
	return v.ValidateWithExtras(input, nil)
}

// ValidateWithExtras is Validate with an auxiliary value.
func (v *Validator) ValidateWithExtras(input, extras any) bool {
	v.storage.Clear()
	v.captures.Clear()
	v.errs.Clear()

	ok := execution.ExecuteWithExtras(input, extras, v.prog.set, v.storage, v.captures, v.errs)
	v.prog.logger.Debug("validation run", "ok", ok, "errors", v.errs.Len(), "captures", v.captures.Len())
	return ok
}

// Errors returns the errors of the last pass, in the order produced.
func (v *Validator) Errors() []execution.ErrorEntry {
	return v.errs.Entries()
}

// Captures returns the captures of the last pass.
func (v *Validator) Captures() map[string]any {
	return v.captures.Map()
}

// Program returns the compiled program.
func (v *Validator) Program() *Program {
	return v.prog
}
