package execution

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/types"
)

// counter records how often, and with what input, a leaf ran.
type counter struct {
	calls  int
	inputs []any
}

func (c *counter) succeed(output func(any) any) blocks.ExecuteFunc {
	return func(input any, _ blocks.Context, _ any) reply.Reply {
		c.calls++
		c.inputs = append(c.inputs, input)
		return reply.Success(output(input))
	}
}

func (c *counter) fail(code types.ErrorCode) blocks.ExecuteFunc {
	return func(input any, ctx blocks.Context, _ any) reply.Reply {
		c.calls++
		c.inputs = append(c.inputs, input)
		return reply.Error(ctx, input, code, "test."+code.String())
	}
}

func identity(v any) any { return v }

func props(name string, capture bool) blocks.Properties {
	return blocks.Properties{blocks.PropName: name, blocks.PropCaptureEnabled: capture}
}

type pass struct {
	ok       bool
	captures *CaptureAggregator
	errors   *ErrorAggregator
}

func run(t *testing.T, root *blocks.Block, input any) pass {
	t.Helper()
	set, err := blocks.Serialize(root)
	if err != nil {
		t.Fatalf("Serialize() error = %v, want nil", err)
	}
	captures, errs := NewCaptureAggregator(), NewErrorAggregator()
	ok := Execute(input, set, NewStorage(set, nil), captures, errs)
	return pass{ok: ok, captures: captures, errors: errs}
}

func TestExecute_AndShortCircuit(t *testing.T) {
	var primary, secondary counter
	root := blocks.NewAnd(
		blocks.NewProcedure(primary.fail(types.CodeIsString), props("primary", false)),
		blocks.NewProcedure(secondary.succeed(identity), props("secondary", false)),
		props("and", false),
	)

	got := run(t, root, 42)

	if got.ok {
		t.Errorf("Execute() = true, want false")
	}
	if secondary.calls != 0 {
		t.Errorf("secondary calls = %v, want 0", secondary.calls)
	}
	entries := got.errors.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(errors) = %v, want 1", len(entries))
	}
	if entries[0].Code != types.CodeIsString || entries[0].Name != "primary" || entries[0].BlockIndex != 1 {
		t.Errorf("error = %+v, want IS_STRING from primary at block 1", entries[0])
	}
	if entries[0].Value != 42 {
		t.Errorf("error value = %v, want 42", entries[0].Value)
	}
}

func TestExecute_AndThreadsOutput(t *testing.T) {
	var primary, secondary counter
	root := blocks.NewAnd(
		blocks.NewProcedure(primary.succeed(func(v any) any { return v.(int) * 10 }), props("", false)),
		blocks.NewProcedure(secondary.succeed(identity), props("", false)),
		props("and", true),
	)

	got := run(t, root, 4)

	if !got.ok {
		t.Fatalf("Execute() = false, want true")
	}
	if len(secondary.inputs) != 1 || secondary.inputs[0] != 40 {
		t.Errorf("secondary inputs = %v, want [40]", secondary.inputs)
	}
	if v, _ := got.captures.Get("and"); v != 40 {
		t.Errorf("capture and = %v, want 40", v)
	}
}

func TestExecute_OrFallback(t *testing.T) {
	tests := []struct {
		name          string
		primaryFails  bool
		secondaryFail bool
		wantOK        bool
		wantCodes     []types.ErrorCode
		wantSecondary int
	}{
		{"primary succeeds", false, false, true, nil, 0},
		{"primary fails secondary succeeds", true, false, true, nil, 1},
		{"both fail", true, true, false, []types.ErrorCode{types.CodeScalarEquals, types.CodeNumericBetween}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var primary, secondary counter
			p := primary.succeed(func(any) any { return "from-primary" })
			if tt.primaryFails {
				p = primary.fail(types.CodeScalarEquals)
			}
			s := secondary.succeed(func(v any) any { return v })
			if tt.secondaryFail {
				s = secondary.fail(types.CodeNumericBetween)
			}
			root := blocks.NewOr(
				blocks.NewProcedure(p, props("p", false)),
				blocks.NewProcedure(s, props("s", false)),
				props("or", true),
			)

			got := run(t, root, "original")

			if got.ok != tt.wantOK {
				t.Errorf("Execute() = %v, want %v", got.ok, tt.wantOK)
			}
			if secondary.calls != tt.wantSecondary {
				t.Errorf("secondary calls = %v, want %v", secondary.calls, tt.wantSecondary)
			}
			if secondary.calls > 0 && secondary.inputs[0] != "original" {
				t.Errorf("secondary input = %v, want original", secondary.inputs[0])
			}
			var codes []types.ErrorCode
			for _, e := range got.errors.Entries() {
				codes = append(codes, e.Code)
			}
			if !reflect.DeepEqual(codes, tt.wantCodes) {
				t.Errorf("error codes = %v, want %v", codes, tt.wantCodes)
			}
			if tt.wantOK {
				want := "original"
				if !tt.primaryFails {
					want = "from-primary"
				}
				if v, _ := got.captures.Get("or"); v != want {
					t.Errorf("capture or = %v, want %v", v, want)
				}
			} else if got.captures.Len() != 0 {
				t.Errorf("captures = %v, want none", got.captures.Map())
			}
		})
	}
}

func TestExecute_IfSelectsBranch(t *testing.T) {
	var onTrue, onFalse counter
	positive := func(input any, _ blocks.Context, _ any) bool { return input.(int) > 0 }
	build := func() *blocks.Block {
		return blocks.NewIf(positive,
			blocks.NewProcedure(onTrue.succeed(identity), props("cmp", false)),
			blocks.NewProcedure(onFalse.fail(types.CodeIsNumeric), props("cmp", false)),
			props("cmp", false),
		)
	}

	if got := run(t, build(), 5); !got.ok || got.errors.Len() != 0 {
		t.Errorf("Execute(5) = %v with %d errors, want true with none", got.ok, got.errors.Len())
	}

	got := run(t, build(), -1)
	if got.ok {
		t.Errorf("Execute(-1) = true, want false")
	}
	entries := got.errors.Entries()
	if len(entries) != 1 || entries[0].Code != types.CodeIsNumeric || entries[0].BlockIndex != 2 {
		t.Errorf("errors = %+v, want one IS_NUMERIC at block 2", entries)
	}
	if onTrue.calls != 1 || onFalse.calls != 1 {
		t.Errorf("branch calls = %d/%d, want 1/1", onTrue.calls, onFalse.calls)
	}
}

func TestExecute_CaptureOnlyOnSuccess(t *testing.T) {
	var ok, bad counter
	root := blocks.NewAnd(
		blocks.NewProcedure(ok.succeed(func(any) any { return "leaf-value" }), props("leaf", true)),
		blocks.NewProcedure(bad.fail(types.CodeInvalidValue), props("failing", true)),
		props("and", true),
	)

	got := run(t, root, nil)

	if v, found := got.captures.Get("leaf"); !found || v != "leaf-value" {
		t.Errorf("capture leaf = %v, %v, want leaf-value, true", v, found)
	}
	if _, found := got.captures.Get("failing"); found {
		t.Errorf("failing leaf captured a value")
	}
	if _, found := got.captures.Get("and"); found {
		t.Errorf("failed combinator captured a value")
	}
}

func TestExecute_DualCapture(t *testing.T) {
	var a, b counter
	root := blocks.NewAnd(
		blocks.NewProcedure(a.succeed(identity), props("", false)),
		blocks.NewProcedure(b.succeed(func(v any) any { return v.(string) + "!" }), props("inner", true)),
		props("outer", true),
	)

	got := run(t, root, "x")

	names := got.captures.Names()
	if !reflect.DeepEqual(names, []string{"inner", "outer"}) {
		t.Errorf("capture names = %v, want [inner outer]", names)
	}
	if v, _ := got.captures.Get("outer"); v != "x!" {
		t.Errorf("capture outer = %v, want x!", v)
	}
}

func TestExecute_HooksRunOnceInOrder(t *testing.T) {
	var order []string
	hook := func(tag string, fail bool) blocks.HookFunc {
		return func(ctx blocks.Context) []reply.ErrorInfo {
			order = append(order, tag)
			if fail {
				return reply.HookError(ctx, types.CodeRequired, types.MsgRequired)
			}
			return reply.HookOK()
		}
	}
	var main counter
	root := blocks.NewOr(
		blocks.NewProcedure(main.fail(types.CodeIsInt), props("first", false),
			blocks.WithStart(hook("start-first", true)), blocks.WithEnd(hook("end-first", false))),
		blocks.NewProcedure(main.fail(types.CodeIsInt), props("second", false),
			blocks.WithStart(hook("start-second", false)), blocks.WithEnd(hook("end-second", true))),
		props("or", false),
	)

	got := run(t, root, "v")

	want := []string{"start-first", "start-second", "end-first", "end-second"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("hook order = %v, want %v", order, want)
	}
	if got.ok {
		t.Errorf("Execute() = true, want false")
	}

	entries := got.errors.Entries()
	if len(entries) != 4 {
		t.Fatalf("len(errors) = %v, want 4 (start, main x2, end)", len(entries))
	}
	wantNames := []string{"first", "first", "second", "second"}
	wantCodes := []types.ErrorCode{types.CodeRequired, types.CodeIsInt, types.CodeIsInt, types.CodeRequired}
	for i, e := range entries {
		if e.Name != wantNames[i] || e.Code != wantCodes[i] {
			t.Errorf("errors[%d] = %s/%v, want %s/%v", i, e.Name, e.Code, wantNames[i], wantCodes[i])
		}
	}
	if entries[0].Value != nil {
		t.Errorf("hook error value = %v, want nil", entries[0].Value)
	}
}

func TestExecute_HookFailureWithMainSuccess(t *testing.T) {
	var main counter
	root := blocks.NewProcedure(main.succeed(identity), props("leaf", true),
		blocks.WithEnd(func(ctx blocks.Context) []reply.ErrorInfo {
			return reply.HookError(ctx, types.CodeCountBetween, types.MsgCountBetween)
		}))

	got := run(t, root, 1)

	if got.ok {
		t.Errorf("Execute() = true, want false when end hook fails")
	}
	if v, _ := got.captures.Get("leaf"); v != 1 {
		t.Errorf("capture leaf = %v, want 1 (main tree still succeeded)", v)
	}
}

func TestExecute_CursorSetBeforeEveryCallable(t *testing.T) {
	seen := map[string]int{}
	record := func(tag string) blocks.ExecuteFunc {
		return func(input any, ctx blocks.Context, _ any) reply.Reply {
			seen[tag] = ctx.CurrentBlockID()
			return reply.Success(input)
		}
	}
	cond := func(_ any, ctx blocks.Context, _ any) bool {
		seen["cond"] = ctx.CurrentBlockID()
		return false
	}
	hook := func(tag string) blocks.HookFunc {
		return func(ctx blocks.Context) []reply.ErrorInfo {
			seen[tag] = ctx.CurrentBlockID()
			return nil
		}
	}
	root := blocks.NewAnd(
		blocks.NewProcedure(record("a"), props("a", false),
			blocks.WithStart(hook("start"))),
		blocks.NewIf(cond,
			blocks.NewProcedure(record("t"), props("t", false)),
			blocks.NewProcedure(record("f"), props("f", false),
				blocks.WithEnd(hook("end"))),
			props("if", false),
		),
		props("and", false),
	)

	if got := run(t, root, 0); !got.ok {
		t.Fatalf("Execute() = false, want true")
	}

	want := map[string]int{"start": 1, "a": 1, "cond": 2, "f": 4, "end": 4}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("cursor positions = %v, want %v", seen, want)
	}
}

func TestExecute_StatePersistsAcrossPhases(t *testing.T) {
	const seenKey blocks.StateKey = 1
	var endSaw any
	root := blocks.NewProcedure(
		func(input any, ctx blocks.Context, _ any) reply.Reply {
			ctx.SetState(seenKey, input)
			return reply.Success(input)
		},
		props("stateful", false),
		blocks.WithStart(func(ctx blocks.Context) []reply.ErrorInfo {
			if _, ok := ctx.State(seenKey); ok {
				t.Errorf("state present before main phase")
			}
			return nil
		}),
		blocks.WithEnd(func(ctx blocks.Context) []reply.ErrorInfo {
			endSaw, _ = ctx.State(seenKey)
			return nil
		}),
	)

	run(t, root, "payload")

	if endSaw != "payload" {
		t.Errorf("end hook state = %v, want payload", endSaw)
	}
}

func TestExecute_ExtrasThreaded(t *testing.T) {
	var got []any
	leafFn := func(input any, _ blocks.Context, extras any) reply.Reply {
		got = append(got, extras)
		return reply.Success(input)
	}
	cond := func(_ any, _ blocks.Context, extras any) bool {
		got = append(got, extras)
		return true
	}
	root := blocks.NewAnd(
		blocks.NewProcedure(leafFn, props("", false)),
		blocks.NewIf(cond, blocks.NewProcedure(leafFn, props("", false)), blocks.NewProcedure(leafFn, props("", false)), props("", false)),
		props("", false),
	)

	set := blocks.MustSerialize(root)
	ExecuteWithExtras(1, "extra", set, NewStorage(set, nil), NewCaptureAggregator(), NewErrorAggregator())

	if !reflect.DeepEqual(got, []any{"extra", "extra", "extra"}) {
		t.Errorf("extras seen = %v, want [extra extra extra]", got)
	}
}

// Property-based test: interpretation depends only on the input.
func TestExecute_PropertyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	positive := func(input any, _ blocks.Context, _ any) bool { return input.(int) > 0 }
	even := func(input any, ctx blocks.Context, _ any) reply.Reply {
		if input.(int)%2 == 0 {
			return reply.Success(input)
		}
		return reply.Error(ctx, input, types.CodeInvalidValue, types.MsgInvalidValue)
	}
	small := func(input any, ctx blocks.Context, _ any) reply.Reply {
		if input.(int) < 100 {
			return reply.Success(input)
		}
		return reply.Error(ctx, input, types.CodeNumericLessThan, types.MsgNumericLessThan, 100)
	}
	set := blocks.MustSerialize(blocks.NewIf(positive,
		blocks.NewOr(blocks.NewProcedure(even, props("even", true)), blocks.NewProcedure(small, props("small", true)), props("either", true)),
		blocks.NewAnd(blocks.NewProcedure(even, props("even", false)), blocks.NewProcedure(small, props("small", false)), props("both", true)),
		props("root", true),
	))

	once := func(input int) (bool, []ErrorEntry, map[string]any) {
		captures, errs := NewCaptureAggregator(), NewErrorAggregator()
		ok := Execute(input, set, NewStorage(set, nil), captures, errs)
		return ok, errs.Entries(), captures.Map()
	}

	properties.Property("same input yields same result", prop.ForAll(
		func(input int) bool {
			ok1, errs1, caps1 := once(input)
			ok2, errs2, caps2 := once(input)
			return ok1 == ok2 && reflect.DeepEqual(errs1, errs2) && reflect.DeepEqual(caps1, caps2) && ok1 == (len(errs1) == 0)
		},
		gen.IntRange(-500, 500),
	))

	properties.TestingRun(t)
}
