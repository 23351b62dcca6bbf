package rules

import (
	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/types"
)

// Leaf is a rule that compiles into a single procedure block.
type Leaf struct {
	Base
	execute blocks.ExecuteFunc
	start   blocks.HookFunc
	end     blocks.HookFunc
	props   blocks.Properties
}

// NewLeaf wraps execute as a rule. props holds rule-specific properties and
// may be nil.
func NewLeaf(execute blocks.ExecuteFunc, props blocks.Properties) *Leaf {
	return &Leaf{execute: execute, props: props.Clone()}
}

// WithHooks attaches start and end hooks; either may be nil.
func (l *Leaf) WithHooks(start, end blocks.HookFunc) *Leaf {
	l.start = start
	l.end = end
	return l
}

func (l *Leaf) ToBlock() *blocks.Block {
	var opts []blocks.ProcedureOption
	if l.start != nil {
		opts = append(opts, blocks.WithStart(l.start))
	}
	if l.end != nil {
		opts = append(opts, blocks.WithEnd(l.end))
	}
	return blocks.NewProcedure(l.execute, l.BlockProperties(l.props), opts...)
}

// Success passes its input through unchanged.
func Success() *Leaf {
	return NewLeaf(executeSuccess, nil)
}

func executeSuccess(input any, _ blocks.Context, _ any) reply.Reply {
	return reply.Success(input)
}

// Fail always fails with the given code, template and params.
func Fail(code types.ErrorCode, template string, params ...any) *Leaf {
	params = append([]any{}, params...)
	return NewLeaf(executeFail, blocks.Properties{
		PropErrorCode:     code,
		PropErrorTemplate: template,
		PropErrorParams:   params,
	})
}

func executeFail(input any, ctx blocks.Context, _ any) reply.Reply {
	code, _ := ctx.Property(PropErrorCode).(types.ErrorCode)
	template, _ := ctx.Property(PropErrorTemplate).(string)
	params, _ := ctx.Property(PropErrorParams).([]any)
	return reply.Error(ctx, input, code, template, params...)
}

// State slots used by the stateful generic rules.
const (
	stateSeen blocks.StateKey = iota + 1
	stateCount
)

// RequiredRule reports Required from its end hook when the main tree never
// reached it during the pass.
type RequiredRule struct {
	Base
	next Rule
}

// Required marks next as mandatory. A nil next requires presence only.
func Required(next Rule) *RequiredRule {
	r := &RequiredRule{next: next}
	if next != nil {
		next.SetParent(r)
	}
	return r
}

func (r *RequiredRule) ToBlock() *blocks.Block {
	if r.next == nil {
		return blocks.NewProcedure(executeMarkSeen, r.BlockProperties(nil), blocks.WithEnd(endRequired))
	}

	// Capture belongs to the combinator; the marker only forwards input.
	markerProps := r.BlockProperties(nil)
	markerProps[blocks.PropCaptureEnabled] = false
	marker := blocks.NewProcedure(executeMarkSeen, markerProps, blocks.WithEnd(endRequired))
	return blocks.NewAnd(marker, r.next.ToBlock(), r.BlockProperties(nil))
}

func executeMarkSeen(input any, ctx blocks.Context, _ any) reply.Reply {
	ctx.SetState(stateSeen, true)
	return reply.Success(input)
}

func endRequired(ctx blocks.Context) []reply.ErrorInfo {
	if seen, _ := ctx.State(stateSeen); seen == true {
		return reply.HookOK()
	}
	return reply.HookError(ctx, types.CodeRequired, types.MsgRequired)
}

// CountBetween counts how many times the main tree reaches it in one pass and
// fails from its end hook unless lower <= count <= upper.
func CountBetween(lower, upper int) *Leaf {
	return NewLeaf(executeCount, blocks.Properties{
		PropLower: lower,
		PropUpper: upper,
	}).WithHooks(startCount, endCount)
}

func startCount(ctx blocks.Context) []reply.ErrorInfo {
	ctx.SetState(stateCount, 0)
	return reply.HookOK()
}

func executeCount(input any, ctx blocks.Context, _ any) reply.Reply {
	n, _ := ctx.State(stateCount)
	count, _ := n.(int)
	ctx.SetState(stateCount, count+1)
	return reply.Success(input)
}

func endCount(ctx blocks.Context) []reply.ErrorInfo {
	n, _ := ctx.State(stateCount)
	count, _ := n.(int)
	lower, _ := ctx.Property(PropLower).(int)
	upper, _ := ctx.Property(PropUpper).(int)
	if count < lower || count > upper {
		return reply.HookError(ctx, types.CodeCountBetween, types.MsgCountBetween, lower, upper)
	}
	return reply.HookOK()
}
