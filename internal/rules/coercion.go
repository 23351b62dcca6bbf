// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/types"
)

/*
 * String-to-X converters.
 *
 * Each converter is a leaf that replaces its input with the converted value,
 * so an And chain can validate on the converted form:
 *   And(StringToInt(), NumericBetween(1, 10))
 *
 * Values already of the target type pass through unchanged. Anything else
 * fails with the target's IS_* code and the original input as error value.
 *
 * Strings are trimmed before parsing; whitespace-only strings never convert.
 * StringToBool accepts true/1/on/yes and false/0/off/no, case-insensitive.
 */

// DefaultDateTimeLayout is used by StringToDateTime when no layout is given.
const DefaultDateTimeLayout = time.RFC3339

func StringToInt() *Leaf { return NewLeaf(executeStringToInt, nil) }
func StringToFloat() *Leaf { return NewLeaf(executeStringToFloat, nil) }
func StringToBool() *Leaf { return NewLeaf(executeStringToBool, nil) }

// StringToDateTime parses strings with layout (DefaultDateTimeLayout if empty).
func StringToDateTime(layout string) *Leaf {
	if layout == "" {
		layout = DefaultDateTimeLayout
	}
	return NewLeaf(executeStringToDateTime, blocks.Properties{PropLayout: layout})
}

func executeStringToInt(input any, ctx blocks.Context, _ any) reply.Reply {
	if v, err := coerceInt(input); err == nil {
		return reply.Success(v)
	}
	return reply.Error(ctx, input, types.CodeIsInt, types.MsgIsInt)
}

func executeStringToFloat(input any, ctx blocks.Context, _ any) reply.Reply {
	if v, err := coerceFloat(input); err == nil {
		return reply.Success(v)
	}
	return reply.Error(ctx, input, types.CodeIsFloat, types.MsgIsFloat)
}

func executeStringToBool(input any, ctx blocks.Context, _ any) reply.Reply {
	if v, err := coerceBool(input); err == nil {
		return reply.Success(v)
	}
	return reply.Error(ctx, input, types.CodeIsBool, types.MsgIsBool)
}

func executeStringToDateTime(input any, ctx blocks.Context, _ any) reply.Reply {
	layout, _ := ctx.Property(PropLayout).(string)
	if v, err := coerceDateTime(input, layout); err == nil {
		return reply.Success(v)
	}
	return reply.Error(ctx, input, types.CodeIsDateTime, types.MsgIsDateTime)
}

// coerceInt converts integer strings and integral numbers to int.
// Every integer kind IsInt accepts converts when it fits in int.
func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0, types.ErrCoercionFailed
		}
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		if uint64(v) > math.MaxInt {
			return 0, types.ErrCoercionFailed
		}
		return int(v), nil
	case uint:
		if uint64(v) > math.MaxInt {
			return 0, types.ErrCoercionFailed
		}
		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return 0, types.ErrCoercionFailed
		}
		return int(v), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, types.ErrCoercionFailed
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, types.ErrCoercionFailed
		}
		return n, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil || n > math.MaxInt || n < math.MinInt {
			return 0, types.ErrCoercionFailed
		}
		return int(n), nil
	case float64:
		if !isInt(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, types.ErrCoercionFailed
		}
		return int(v), nil
	default:
		return 0, types.ErrCoercionFailed
	}
}

// coerceFloat converts numeric strings to float64. Booleans are rejected.
func coerceFloat(value any) (float64, error) {
	if s, ok := value.(string); ok {
		if !isNumericString(s) {
			return 0, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, types.ErrCoercionFailed
		}
		return f, nil
	}
	if _, isBool := value.(bool); isBool {
		return 0, types.ErrCoercionFailed
	}
	if f, ok := toFloat64(value); ok {
		return f, nil
	}
	return 0, types.ErrCoercionFailed
}

// coerceBool converts the accepted boolean words. Numbers other than the
// strings "0" and "1" are rejected to avoid truthiness ambiguity.
func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			return true, nil
		case "false", "0", "off", "no":
			return false, nil
		}
	}
	return false, types.ErrCoercionFailed
}

// coerceDateTime parses strings with layout. time.Time passes through.
func coerceDateTime(value any, layout string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, types.ErrCoercionFailed
		}
		t, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, types.ErrCoercionFailed
		}
		return t, nil
	default:
		return time.Time{}, types.ErrCoercionFailed
	}
}
