package rules

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/types"
)

// Type checks pass their input through unchanged or fail with the matching
// IS_* code.

func IsString() *Leaf { return NewLeaf(executeIsString, nil) }
func IsBool() *Leaf { return NewLeaf(executeIsBool, nil) }
func IsInt() *Leaf { return NewLeaf(executeIsInt, nil) }
func IsFloat() *Leaf { return NewLeaf(executeIsFloat, nil) }
func IsNumeric() *Leaf { return NewLeaf(executeIsNumeric, nil) }
func IsDateTime() *Leaf { return NewLeaf(executeIsDateTime, nil) }
func IsArray() *Leaf { return NewLeaf(executeIsArray, nil) }
func IsNull() *Leaf { return NewLeaf(executeIsNull, nil) }
func IsNotNull() *Leaf { return NewLeaf(executeIsNotNull, nil) }

func check(ok bool, input any, ctx blocks.Context, code types.ErrorCode, template string) reply.Reply {
	if ok {
		return reply.Success(input)
	}
	return reply.Error(ctx, input, code, template)
}

func executeIsString(input any, ctx blocks.Context, _ any) reply.Reply {
	_, ok := input.(string)
	return check(ok, input, ctx, types.CodeIsString, types.MsgIsString)
}

func executeIsBool(input any, ctx blocks.Context, _ any) reply.Reply {
	_, ok := input.(bool)
	return check(ok, input, ctx, types.CodeIsBool, types.MsgIsBool)
}

func executeIsInt(input any, ctx blocks.Context, _ any) reply.Reply {
	return check(isInt(input), input, ctx, types.CodeIsInt, types.MsgIsInt)
}

func executeIsFloat(input any, ctx blocks.Context, _ any) reply.Reply {
	var ok bool
	switch v := input.(type) {
	case float32, float64:
		ok = true
	case json.Number:
		_, err := v.Float64()
		ok = err == nil
	}
	return check(ok, input, ctx, types.CodeIsFloat, types.MsgIsFloat)
}

func executeIsNumeric(input any, ctx blocks.Context, _ any) reply.Reply {
	_, ok := toFloat64(input)
	if s, isString := input.(string); isString {
		ok = isNumericString(s)
	}
	return check(ok, input, ctx, types.CodeIsNumeric, types.MsgIsNumeric)
}

func executeIsDateTime(input any, ctx blocks.Context, _ any) reply.Reply {
	_, ok := input.(time.Time)
	return check(ok, input, ctx, types.CodeIsDateTime, types.MsgIsDateTime)
}

func executeIsArray(input any, ctx blocks.Context, _ any) reply.Reply {
	ok := false
	if input != nil {
		switch reflect.TypeOf(input).Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			ok = true
		}
	}
	return check(ok, input, ctx, types.CodeIsArray, types.MsgIsArray)
}

func executeIsNull(input any, ctx blocks.Context, _ any) reply.Reply {
	return check(input == nil, input, ctx, types.CodeIsNull, types.MsgIsNull)
}

func executeIsNotNull(input any, ctx blocks.Context, _ any) reply.Reply {
	return check(input != nil, input, ctx, types.CodeIsNotNull, types.MsgIsNotNull)
}

// isInt accepts Go integer kinds, integral json.Number and integral finite
// float64. Decoded JSON carries every number as float64 or json.Number.
func isInt(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := n.Int64()
		return err == nil
	case float64:
		return !math.IsInf(n, 0) && !math.IsNaN(n) && n == math.Trunc(n)
	default:
		return false
	}
}

// isNumericString accepts optionally signed decimal and exponent notation,
// with surrounding whitespace.
func isNumericString(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	// ParseFloat also accepts hex floats and underscores; plain decimals only.
	return !strings.ContainsAny(s, "xXpP_")
}
