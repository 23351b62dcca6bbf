package validator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/rules"
	"github.com/solatis/ruleblocks/internal/types"
)

// counting passes its input through and counts invocations.
func counting(n *atomic.Int64) *rules.Leaf {
	return rules.NewLeaf(func(input any, _ blocks.Context, _ any) reply.Reply {
		n.Add(1)
		return reply.Success(input)
	}, nil)
}

func countHook(n *atomic.Int64) blocks.HookFunc {
	return func(blocks.Context) []reply.ErrorInfo {
		n.Add(1)
		return nil
	}
}

func mustCompile(t *testing.T, r rules.Rule, opts ...Option) *Program {
	t.Helper()
	prog, err := Compile(r, opts...)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return prog
}

func errorCodes(entries []execution.ErrorEntry) []types.ErrorCode {
	var out []types.ErrorCode
	for _, e := range entries {
		out = append(out, e.Code)
	}
	return out
}

func TestProgram_ResultParamsDoNotLeakIntoProgram(t *testing.T) {
	prog := mustCompile(t, rules.Named(rules.ScalarInValues("a", "b"), "x"))

	first := prog.Run("z")
	if first.OK || len(first.Errors) != 1 {
		t.Fatalf("Run(z) = %+v, want one error", first)
	}
	first.Errors[0].Params[0] = "z"

	again := prog.Run("z")
	if again.OK {
		t.Fatalf("second Run(z) OK = true, want false")
	}
	if want := []any{"a", "b"}; !reflect.DeepEqual(again.Errors[0].Params, want) {
		t.Errorf("second Run(z) Params = %v, want %v", again.Errors[0].Params, want)
	}
	if !prog.Run("a").OK {
		t.Errorf("Run(a) OK = false, want true")
	}
}

func TestScenario_IfPositive(t *testing.T) {
	isPositive := func(input any, _ blocks.Context, _ any) bool {
		n, ok := input.(int)
		return ok && n > 0
	}
	prog := mustCompile(t, rules.If(isPositive, rules.Success(), rules.Fail(types.CodeIsNumeric, types.MsgIsNumeric), nil))

	if got := prog.Run(5); !got.OK || len(got.Errors) != 0 {
		t.Errorf("Run(5) = %+v, want success without errors", got)
	}
	got := prog.Run(-1)
	if got.OK || !reflect.DeepEqual(errorCodes(got.Errors), []types.ErrorCode{types.CodeIsNumeric}) {
		t.Errorf("Run(-1) = %+v, want one IS_NUMERIC", got)
	}
}

func TestScenario_StringThenBool(t *testing.T) {
	var converted atomic.Int64
	rule := rules.Captured(rules.Named(rules.And(rules.IsString(), rules.And(counting(&converted), rules.StringToBool())), "flag"))
	prog := mustCompile(t, rule)

	got := prog.Run("yes")
	if !got.OK || got.Captures["flag"] != true {
		t.Errorf("Run(yes) = %+v, want success with flag=true", got)
	}

	converted.Store(0)
	got = prog.Run(42)
	if got.OK || !reflect.DeepEqual(errorCodes(got.Errors), []types.ErrorCode{types.CodeIsString}) {
		t.Errorf("Run(42) = %+v, want one IS_STRING", got)
	}
	if converted.Load() != 0 {
		t.Errorf("StringToBool branch invoked %d times, want 0", converted.Load())
	}
}

func TestScenario_OrNumericEquals(t *testing.T) {
	prog := mustCompile(t, rules.Or(rules.Named(rules.NumericEquals(1), "one"), rules.Named(rules.NumericEquals(2), "two")))

	if got := prog.Run(2); !got.OK {
		t.Errorf("Run(2) = %+v, want success", got)
	}
	got := prog.Run(3)
	if got.OK || len(got.Errors) != 2 {
		t.Fatalf("Run(3) = %+v, want two errors", got)
	}
	if got.Errors[0].Name != "one" || got.Errors[1].Name != "two" {
		t.Errorf("error names = %s, %s, want one, two", got.Errors[0].Name, got.Errors[1].Name)
	}
}

func TestScenario_ValueThreading(t *testing.T) {
	prog := mustCompile(t, rules.Captured(rules.Named(rules.And(rules.StringToInt(), rules.NumericBetween(1, 10)), "n")))

	got := prog.Run("5")
	if !got.OK || got.Captures["n"] != 5 {
		t.Errorf("Run(\"5\") = %+v, want n=5 (int)", got)
	}
}

func TestScenario_ErrorAttribution(t *testing.T) {
	rule := rules.AndAll(
		rules.Named(rules.IsString(), "kind"),
		rules.Named(rules.StringLengthMin(3), "length"),
		rules.Named(rules.StringPrefix("x"), "prefix"),
	)
	prog := mustCompile(t, rule)

	for _, input := range []any{1, "ab", "abc"} {
		got := prog.Run(input)
		if len(got.Errors) != 1 {
			t.Fatalf("Run(%v) errors = %+v, want one", input, got.Errors)
		}
		e := got.Errors[0]
		if name := prog.Set().Node(e.BlockIndex).Name(); name != e.Name {
			t.Errorf("Run(%v) entry name %q, node %d carries %q", input, e.Name, e.BlockIndex, name)
		}
	}
}

func TestValidator_ResetsBetweenCalls(t *testing.T) {
	v, err := New(rules.Captured(rules.Named(rules.IsString(), "s")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if v.Validate(1) {
		t.Fatalf("Validate(1) = true, want false")
	}
	if len(v.Errors()) != 1 {
		t.Fatalf("Errors() = %+v, want one", v.Errors())
	}

	if !v.Validate("ok") {
		t.Fatalf("Validate(ok) = false, errors %+v", v.Errors())
	}
	if len(v.Errors()) != 0 {
		t.Errorf("Errors() after success = %+v, want reset", v.Errors())
	}
	if v.Captures()["s"] != "ok" {
		t.Errorf("Captures() = %v, want s=ok", v.Captures())
	}

	v.Validate(2)
	if _, found := v.Captures()["s"]; found {
		t.Errorf("capture from previous pass survived: %v", v.Captures())
	}
}

func TestValidator_HooksOncePerValidate(t *testing.T) {
	var starts, ends atomic.Int64
	leaf := rules.NewLeaf(func(input any, _ blocks.Context, _ any) reply.Reply {
		return reply.Success(input)
	}, nil).WithHooks(
		countHook(&starts),
		countHook(&ends),
	)
	v, err := New(rules.Or(rules.IsInt(), leaf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	v.Validate(1)  // leaf main never reached
	v.Validate("") // leaf main reached
	if starts.Load() != 2 || ends.Load() != 2 {
		t.Errorf("hooks ran %d/%d times, want 2/2", starts.Load(), ends.Load())
	}
}

func TestCompile_Errors(t *testing.T) {
	if _, err := Compile(nil); !errors.Is(err, types.ErrInvalidRule) {
		t.Errorf("Compile(nil) error = %v, want ErrInvalidRule", err)
	}

	deep := rules.AndAll(rules.IsString(), rules.IsString(), rules.IsString(), rules.IsString())
	_, err := Compile(deep, WithLimits(types.Limits{MaxBlocks: 3, MaxDepth: 10}))
	if !errors.Is(err, types.ErrTooManyBlocks) {
		t.Errorf("Compile() error = %v, want ErrTooManyBlocks", err)
	}
}

func TestCompile_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	prog := mustCompile(t, rules.Named(rules.IsString(), "title"), WithLogger(logger))
	prog.Run("x")

	out := buf.String()
	if !strings.Contains(out, "compiled rule set") || !strings.Contains(out, "name=title") {
		t.Errorf("compile log missing: %s", out)
	}
	if !strings.Contains(out, "fingerprint="+prog.Fingerprint()) {
		t.Errorf("fingerprint not logged: %s", out)
	}
	if !strings.Contains(out, "validation run") {
		t.Errorf("run log missing: %s", out)
	}
}

func TestProgram_Capabilities(t *testing.T) {
	known := rules.NewLeaf(func(input any, ctx blocks.Context, _ any) reply.Reply {
		skus, _ := ctx.Capabilities().Lookup("skus")
		if _, ok := skus.(map[string]bool)[input.(string)]; ok {
			return reply.Success(input)
		}
		return reply.Error(ctx, input, types.CodeScalarInValues, types.MsgScalarInValues)
	}, nil)
	prog := mustCompile(t, known, WithCapabilities(execution.MapCapabilities{"skus": map[string]bool{"A": true}}))

	if !prog.Run("A").OK || prog.Run("B").OK {
		t.Errorf("capability lookup not honoured")
	}
}

func TestProgram_RunWithExtras(t *testing.T) {
	leaf := rules.NewLeaf(func(input any, ctx blocks.Context, extras any) reply.Reply {
		if extras == "strict" && input == "" {
			return reply.Error(ctx, input, types.CodeRequired, types.MsgRequired)
		}
		return reply.Success(input)
	}, nil)
	prog := mustCompile(t, leaf)

	if !prog.RunWithExtras("", nil).OK || prog.RunWithExtras("", "strict").OK {
		t.Errorf("extras not threaded to leaf")
	}
}

func TestProgram_RunBatch(t *testing.T) {
	prog := mustCompile(t, rules.Captured(rules.Named(rules.And(rules.StringToInt(), rules.NumericLessThan(10)), "n")))
	inputs := []any{"1", "20", "x", "3", "9", "10"}

	results, err := prog.RunBatch(context.Background(), inputs, 3)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	wantOK := []bool{true, false, false, true, true, false}
	for i, r := range results {
		if r.OK != wantOK[i] {
			t.Errorf("results[%d].OK = %v, want %v", i, r.OK, wantOK[i])
		}
		if want := prog.Run(inputs[i]); !reflect.DeepEqual(r, want) {
			t.Errorf("results[%d] = %+v, sequential run %+v", i, r, want)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := prog.RunBatch(ctx, inputs, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("RunBatch(cancelled) error = %v, want context.Canceled", err)
	}
}

// Property-based test: concurrent batch equals sequential runs
func TestProgram_PropertyBatchMatchesSequential(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	prog := mustCompile(t, rules.Or(
		rules.Captured(rules.Named(rules.NumericBetween(0, 10), "small")),
		rules.Captured(rules.Named(rules.NumericMoreThan(100), "large")),
	))

	properties.Property("batch results equal sequential results", prop.ForAll(
		func(values []int, workers int) bool {
			inputs := make([]any, len(values))
			for i, v := range values {
				inputs[i] = v
			}
			results, err := prog.RunBatch(context.Background(), inputs, workers)
			if err != nil || len(results) != len(inputs) {
				return false
			}
			for i, input := range inputs {
				if !reflect.DeepEqual(results[i], prog.Run(input)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-50, 200)),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
