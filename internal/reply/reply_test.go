package reply

import (
	"testing"

	"github.com/solatis/ruleblocks/internal/types"
)

type fixedCursor int

func (c fixedCursor) CurrentBlockID() int { return int(c) }

func TestSuccess(t *testing.T) {
	r := Success(42)

	if !r.OK() {
		t.Fatalf("OK() = false, want true")
	}
	if r.Value() != 42 {
		t.Errorf("Value() = %v, want 42", r.Value())
	}
}

func TestZeroReplyIsSuccess(t *testing.T) {
	var r Reply
	if !r.OK() {
		t.Errorf("zero Reply OK() = false, want true")
	}
	if r.Value() != nil {
		t.Errorf("zero Reply Value() = %v, want nil", r.Value())
	}
}

func TestError_InjectsCursor(t *testing.T) {
	r := Error(fixedCursor(7), "abc", types.CodeIsInt, types.MsgIsInt, 1, "two")

	if r.OK() {
		t.Fatalf("OK() = true, want false")
	}
	errs := r.Errors()
	if len(errs) != 1 {
		t.Fatalf("len(Errors()) = %v, want 1", len(errs))
	}
	e := errs[0]
	if e.BlockIndex != 7 {
		t.Errorf("BlockIndex = %v, want 7", e.BlockIndex)
	}
	if e.Value != "abc" {
		t.Errorf("Value = %v, want abc", e.Value)
	}
	if e.Code != types.CodeIsInt || e.Template != types.MsgIsInt {
		t.Errorf("Code/Template = %v/%v, want %v/%v", e.Code, e.Template, types.CodeIsInt, types.MsgIsInt)
	}
	if len(e.Params) != 2 || e.Params[0] != 1 || e.Params[1] != "two" {
		t.Errorf("Params = %v, want [1 two]", e.Params)
	}
}

func TestError_NilParamsBecomeEmpty(t *testing.T) {
	e := Error(fixedCursor(0), nil, types.CodeInvalidValue, types.MsgInvalidValue).Errors()[0]
	if e.Params == nil || len(e.Params) != 0 {
		t.Errorf("Params = %#v, want empty non-nil slice", e.Params)
	}
}

func TestError_ParamsDoNotAliasCaller(t *testing.T) {
	params := []any{"a", "b"}
	e := Error(fixedCursor(0), "z", types.CodeScalarInValues, types.MsgScalarInValues, params...).Errors()[0]

	e.Params[0] = "z"
	if params[0] != "a" {
		t.Errorf("caller params = %v after mutating reply params, want [a b]", params)
	}
}

func TestFailure_PreservesOrder(t *testing.T) {
	a := ErrorInfo{BlockIndex: 1, Code: types.CodeScalarEquals}
	b := ErrorInfo{BlockIndex: 4, Code: types.CodeScalarEquals}

	errs := Failure(a, b).Errors()
	if len(errs) != 2 || errs[0].BlockIndex != 1 || errs[1].BlockIndex != 4 {
		t.Errorf("Errors() = %+v, want block 1 then block 4", errs)
	}
}

func TestContractViolationsPanic(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"Value on failure", func() { Error(fixedCursor(0), nil, types.CodeIsBool, types.MsgIsBool).Value() }},
		{"Errors on success", func() { Success(1).Errors() }},
		{"empty Failure", func() { Failure() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic", tt.name)
				}
			}()
			tt.fn()
		})
	}
}

func TestHookHelpers(t *testing.T) {
	if HookOK() != nil {
		t.Errorf("HookOK() = %v, want nil", HookOK())
	}
	errs := HookError(fixedCursor(3), types.CodeRequired, types.MsgRequired)
	if len(errs) != 1 || errs[0].BlockIndex != 3 || errs[0].Value != nil {
		t.Errorf("HookError() = %+v, want one entry at block 3 with nil value", errs)
	}
}
