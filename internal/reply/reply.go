// Package reply defines the fixed-shape result exchanged between leaf
// procedures and the block interpreter.
//
// A Reply is either a success carrying an output value or a failure carrying
// a non-empty list of ErrorInfo records. The two are mutually exclusive and
// reading the wrong side panics: it is a contract violation, not a
// recoverable condition.
package reply

import (
	"fmt"

	"github.com/solatis/ruleblocks/internal/types"
)

// Cursor exposes the block currently being evaluated.
// Error constructors read it so leaf authors never set block indices by hand.
type Cursor interface {
	CurrentBlockID() int
}

// ErrorInfo is one validation failure as produced by a leaf or hook.
type ErrorInfo struct {
	BlockIndex int
	Value      any
	Code       types.ErrorCode
	Template   string
	Params     []any
}

// Reply is the success-xor-error result of a block evaluation.
// The zero Reply is a success with a nil value.
type Reply struct {
	value  any
	errors []ErrorInfo
}

// Success returns a successful reply carrying value.
func Success(value any) Reply {
	return Reply{value: value}
}

// Error returns a failed reply with one entry attributed to the cursor's current block.
func Error(cur Cursor, value any, code types.ErrorCode, template string, params ...any) Reply {
	return Reply{errors: []ErrorInfo{newInfo(cur, value, code, template, params)}}
}

// Failure returns a failed reply carrying the given entries in order.
// Panics when infos is empty: a failure without errors would read as success.
func Failure(infos ...ErrorInfo) Reply {
	if len(infos) == 0 {
		panic("reply: failure requires at least one error entry")
	}
	out := make([]ErrorInfo, len(infos))
	copy(out, infos)
	return Reply{errors: out}
}

// OK reports whether the reply is a success.
func (r Reply) OK() bool {
	return r.errors == nil
}

// Value returns the success payload. Panics on a failed reply.
func (r Reply) Value() any {
	if r.errors != nil {
		panic(fmt.Sprintf("reply: Value called on failed reply with %d errors", len(r.errors)))
	}
	return r.value
}

// Errors returns the failure entries. Panics on a successful reply.
func (r Reply) Errors() []ErrorInfo {
	if r.errors == nil {
		panic("reply: Errors called on successful reply")
	}
	return r.errors
}

// HookOK is the result of a start or end hook that found nothing to report.
func HookOK() []ErrorInfo {
	return nil
}

// HookError returns a single hook failure attributed to the cursor's current block.
// Hooks run independently of the main input, so the offending value is nil.
func HookError(cur Cursor, code types.ErrorCode, template string, params ...any) []ErrorInfo {
	return []ErrorInfo{newInfo(cur, nil, code, template, params)}
}

func newInfo(cur Cursor, value any, code types.ErrorCode, template string, params []any) ErrorInfo {
	// Params never aliases the caller's slice, which may be block state.
	params = append([]any{}, params...)
	return ErrorInfo{
		BlockIndex: cur.CurrentBlockID(),
		Value:      value,
		Code:       code,
		Template:   template,
		Params:     params,
	}
}
