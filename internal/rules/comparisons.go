package rules

import (
	"regexp"
	"time"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/types"
)

// Comparison checks its input against operands stored in the If node's
// properties. It compiles into If(condition, Success, Fail(code, ...)); the
// branches carry no name of their own and resolve to the comparison's.
type Comparison struct {
	Base
	condition blocks.ConditionFunc
	code      types.ErrorCode
	template  string
	params    []any
	props     blocks.Properties
}

func newComparison(condition blocks.ConditionFunc, code types.ErrorCode, template string, props blocks.Properties, params ...any) *Comparison {
	return &Comparison{
		condition: condition,
		code:      code,
		template:  template,
		params:    append([]any(nil), params...),
		props:     props,
	}
}

func (c *Comparison) ToBlock() *blocks.Block {
	onTrue := Success()
	onTrue.SetParent(c)
	onFalse := Fail(c.code, c.template, c.params...)
	onFalse.SetParent(c)
	return blocks.NewIf(c.condition, onTrue.ToBlock(), onFalse.ToBlock(), c.BlockProperties(c.props))
}

// Scalar comparisons

func ScalarEquals(value any) *Comparison {
	return newComparison(scalarEquals, types.CodeScalarEquals, types.MsgScalarEquals,
		blocks.Properties{PropValue: value}, value)
}

func ScalarNotEquals(value any) *Comparison {
	return newComparison(scalarNotEquals, types.CodeScalarNotEquals, types.MsgScalarNotEquals,
		blocks.Properties{PropValue: value}, value)
}

// ScalarInValues passes when the input equals any of values.
func ScalarInValues(values ...any) *Comparison {
	list := append([]any{}, values...)
	return newComparison(scalarInValues, types.CodeScalarInValues, types.MsgScalarInValues,
		blocks.Properties{PropValues: list}, list...)
}

func scalarEquals(input any, ctx blocks.Context, _ any) bool {
	return compareEqual(input, ctx.Property(PropValue))
}

func scalarNotEquals(input any, ctx blocks.Context, _ any) bool {
	return !compareEqual(input, ctx.Property(PropValue))
}

func scalarInValues(input any, ctx blocks.Context, _ any) bool {
	return compareIn(input, ctx.Property(PropValues))
}

// Numeric comparisons. Non-numeric input always fails.

func NumericEquals(value float64) *Comparison {
	return newComparison(numericEquals, types.CodeScalarEquals, types.MsgScalarEquals,
		blocks.Properties{PropValue: value}, value)
}

func NumericLessThan(value float64) *Comparison {
	return newComparison(numericLessThan, types.CodeNumericLessThan, types.MsgNumericLessThan,
		blocks.Properties{PropValue: value}, value)
}

func NumericLessOrEquals(value float64) *Comparison {
	return newComparison(numericLessOrEquals, types.CodeNumericLessOrEquals, types.MsgNumericLessOrEquals,
		blocks.Properties{PropValue: value}, value)
}

func NumericMoreThan(value float64) *Comparison {
	return newComparison(numericMoreThan, types.CodeNumericMoreThan, types.MsgNumericMoreThan,
		blocks.Properties{PropValue: value}, value)
}

func NumericMoreOrEquals(value float64) *Comparison {
	return newComparison(numericMoreOrEquals, types.CodeNumericMoreOrEquals, types.MsgNumericMoreOrEquals,
		blocks.Properties{PropValue: value}, value)
}

// NumericBetween passes for lower <= input <= upper.
func NumericBetween(lower, upper float64) *Comparison {
	return newComparison(numericBetween, types.CodeNumericBetween, types.MsgNumericBetween,
		blocks.Properties{PropLower: lower, PropUpper: upper}, lower, upper)
}

func numericAgainst(input any, ctx blocks.Context, accept func(int) bool) bool {
	cmp, ok := compareNumeric(input, ctx.Property(PropValue))
	return ok && accept(cmp)
}

func numericEquals(input any, ctx blocks.Context, _ any) bool {
	return numericAgainst(input, ctx, func(c int) bool { return c == 0 })
}

func numericLessThan(input any, ctx blocks.Context, _ any) bool {
	return numericAgainst(input, ctx, func(c int) bool { return c < 0 })
}

func numericLessOrEquals(input any, ctx blocks.Context, _ any) bool {
	return numericAgainst(input, ctx, func(c int) bool { return c <= 0 })
}

func numericMoreThan(input any, ctx blocks.Context, _ any) bool {
	return numericAgainst(input, ctx, func(c int) bool { return c > 0 })
}

func numericMoreOrEquals(input any, ctx blocks.Context, _ any) bool {
	return numericAgainst(input, ctx, func(c int) bool { return c >= 0 })
}

func numericBetween(input any, ctx blocks.Context, _ any) bool {
	lo, okLo := compareNumeric(input, ctx.Property(PropLower))
	hi, okHi := compareNumeric(input, ctx.Property(PropUpper))
	return okLo && okHi && lo >= 0 && hi <= 0
}

// Date-time comparisons. Input must already be a time.Time.

func DateTimeEquals(value time.Time) *Comparison {
	return newComparison(dateTimeEquals, types.CodeDateTimeEquals, types.MsgDateTimeEquals,
		blocks.Properties{PropValue: value}, value)
}

func DateTimeNotEquals(value time.Time) *Comparison {
	return newComparison(dateTimeNotEquals, types.CodeDateTimeNotEquals, types.MsgDateTimeNotEquals,
		blocks.Properties{PropValue: value}, value)
}

func DateTimeLessThan(value time.Time) *Comparison {
	return newComparison(dateTimeLessThan, types.CodeDateTimeLessThan, types.MsgDateTimeLessThan,
		blocks.Properties{PropValue: value}, value)
}

func DateTimeLessOrEquals(value time.Time) *Comparison {
	return newComparison(dateTimeLessOrEquals, types.CodeDateTimeLessOrEquals, types.MsgDateTimeLessOrEquals,
		blocks.Properties{PropValue: value}, value)
}

func DateTimeMoreThan(value time.Time) *Comparison {
	return newComparison(dateTimeMoreThan, types.CodeDateTimeMoreThan, types.MsgDateTimeMoreThan,
		blocks.Properties{PropValue: value}, value)
}

func DateTimeMoreOrEquals(value time.Time) *Comparison {
	return newComparison(dateTimeMoreOrEquals, types.CodeDateTimeMoreOrEquals, types.MsgDateTimeMoreOrEquals,
		blocks.Properties{PropValue: value}, value)
}

// DateTimeBetween passes for lower <= input <= upper.
func DateTimeBetween(lower, upper time.Time) *Comparison {
	return newComparison(dateTimeBetween, types.CodeDateTimeBetween, types.MsgDateTimeBetween,
		blocks.Properties{PropLower: lower, PropUpper: upper}, lower, upper)
}

func timeAgainst(input any, ctx blocks.Context, accept func(int) bool) bool {
	cmp, ok := compareTime(input, ctx.Property(PropValue))
	return ok && accept(cmp)
}

func dateTimeEquals(input any, ctx blocks.Context, _ any) bool {
	return timeAgainst(input, ctx, func(c int) bool { return c == 0 })
}

func dateTimeNotEquals(input any, ctx blocks.Context, _ any) bool {
	return timeAgainst(input, ctx, func(c int) bool { return c != 0 })
}

func dateTimeLessThan(input any, ctx blocks.Context, _ any) bool {
	return timeAgainst(input, ctx, func(c int) bool { return c < 0 })
}

func dateTimeLessOrEquals(input any, ctx blocks.Context, _ any) bool {
	return timeAgainst(input, ctx, func(c int) bool { return c <= 0 })
}

func dateTimeMoreThan(input any, ctx blocks.Context, _ any) bool {
	return timeAgainst(input, ctx, func(c int) bool { return c > 0 })
}

func dateTimeMoreOrEquals(input any, ctx blocks.Context, _ any) bool {
	return timeAgainst(input, ctx, func(c int) bool { return c >= 0 })
}

func dateTimeBetween(input any, ctx blocks.Context, _ any) bool {
	lo, okLo := compareTime(input, ctx.Property(PropLower))
	hi, okHi := compareTime(input, ctx.Property(PropUpper))
	return okLo && okHi && lo >= 0 && hi <= 0
}

// String comparisons. Lengths count runes; non-string input always fails.

func StringLengthBetween(lower, upper int) *Comparison {
	return newComparison(stringLengthBetween, types.CodeStringLengthBetween, types.MsgStringLengthBetween,
		blocks.Properties{PropLower: lower, PropUpper: upper}, lower, upper)
}

func StringLengthMin(lower int) *Comparison {
	return newComparison(stringLengthMin, types.CodeStringLengthMin, types.MsgStringLengthMin,
		blocks.Properties{PropLower: lower}, lower)
}

func StringLengthMax(upper int) *Comparison {
	return newComparison(stringLengthMax, types.CodeStringLengthMax, types.MsgStringLengthMax,
		blocks.Properties{PropUpper: upper}, upper)
}

// StringRegExp passes when the input matches pattern anywhere. Panics if
// pattern does not compile, like regexp.MustCompile.
func StringRegExp(pattern string) *Comparison {
	re := regexp.MustCompile(pattern)
	return newComparison(stringRegExp, types.CodeStringRegExp, types.MsgStringRegExp,
		blocks.Properties{PropPattern: re}, pattern)
}

func StringPrefix(prefix string) *Comparison {
	return newComparison(stringPrefix, types.CodeStringPrefix, types.MsgStringPrefix,
		blocks.Properties{PropValue: prefix}, prefix)
}

func StringSuffix(suffix string) *Comparison {
	return newComparison(stringSuffix, types.CodeStringSuffix, types.MsgStringSuffix,
		blocks.Properties{PropValue: suffix}, suffix)
}

func stringLengthBetween(input any, ctx blocks.Context, _ any) bool {
	n, ok := stringLength(input)
	lower, _ := ctx.Property(PropLower).(int)
	upper, _ := ctx.Property(PropUpper).(int)
	return ok && n >= lower && n <= upper
}

func stringLengthMin(input any, ctx blocks.Context, _ any) bool {
	n, ok := stringLength(input)
	lower, _ := ctx.Property(PropLower).(int)
	return ok && n >= lower
}

func stringLengthMax(input any, ctx blocks.Context, _ any) bool {
	n, ok := stringLength(input)
	upper, _ := ctx.Property(PropUpper).(int)
	return ok && n <= upper
}

func stringRegExp(input any, ctx blocks.Context, _ any) bool {
	s, ok := input.(string)
	re, _ := ctx.Property(PropPattern).(*regexp.Regexp)
	return ok && re != nil && re.MatchString(s)
}

func stringPrefix(input any, ctx blocks.Context, _ any) bool {
	return comparePrefix(input, ctx.Property(PropValue))
}

func stringSuffix(input any, ctx blocks.Context, _ any) bool {
	return compareSuffix(input, ctx.Property(PropValue))
}
