package types

import (
	"fmt"
	"sync"
)

// ErrorCode identifies the kind of validation failure reported by a leaf.
// Values are stable; new codes are appended after LastErrorCode by callers.
type ErrorCode int

const (
	// Generic
	CodeInvalidValue ErrorCode = iota
	CodeRequired

	// Types
	CodeIsString
	CodeIsBool
	CodeIsInt
	CodeIsFloat
	CodeIsNumeric
	CodeIsDateTime
	CodeIsArray

	// Comparisons
	CodeDateTimeBetween
	CodeDateTimeEquals
	CodeDateTimeLessOrEquals
	CodeDateTimeLessThan
	CodeDateTimeMoreOrEquals
	CodeDateTimeMoreThan
	CodeDateTimeNotEquals
	CodeNumericBetween
	CodeNumericLessOrEquals
	CodeNumericLessThan
	CodeNumericMoreOrEquals
	CodeNumericMoreThan
	CodeScalarEquals
	CodeScalarNotEquals
	CodeScalarInValues
	CodeStringLengthBetween
	CodeStringLengthMin
	CodeStringLengthMax
	CodeStringRegExp
	CodeIsNull
	CodeIsNotNull

	// Extensions
	CodeStringPrefix
	CodeStringSuffix
	CodeFieldExists
	CodeCountBetween
	CodeMatchesSchema

	// LastErrorCode marks the end of the built-in range.
	LastErrorCode = CodeMatchesSchema
)

var codeNames = [...]string{
	CodeInvalidValue:         "INVALID_VALUE",
	CodeRequired:             "REQUIRED",
	CodeIsString:             "IS_STRING",
	CodeIsBool:               "IS_BOOL",
	CodeIsInt:                "IS_INT",
	CodeIsFloat:              "IS_FLOAT",
	CodeIsNumeric:            "IS_NUMERIC",
	CodeIsDateTime:           "IS_DATE_TIME",
	CodeIsArray:              "IS_ARRAY",
	CodeDateTimeBetween:      "DATE_TIME_BETWEEN",
	CodeDateTimeEquals:       "DATE_TIME_EQUALS",
	CodeDateTimeLessOrEquals: "DATE_TIME_LESS_OR_EQUALS",
	CodeDateTimeLessThan:     "DATE_TIME_LESS_THAN",
	CodeDateTimeMoreOrEquals: "DATE_TIME_MORE_OR_EQUALS",
	CodeDateTimeMoreThan:     "DATE_TIME_MORE_THAN",
	CodeDateTimeNotEquals:    "DATE_TIME_NOT_EQUALS",
	CodeNumericBetween:       "NUMERIC_BETWEEN",
	CodeNumericLessOrEquals:  "NUMERIC_LESS_OR_EQUALS",
	CodeNumericLessThan:      "NUMERIC_LESS_THAN",
	CodeNumericMoreOrEquals:  "NUMERIC_MORE_OR_EQUALS",
	CodeNumericMoreThan:      "NUMERIC_MORE_THAN",
	CodeScalarEquals:         "SCALAR_EQUALS",
	CodeScalarNotEquals:      "SCALAR_NOT_EQUALS",
	CodeScalarInValues:       "SCALAR_IN_VALUES",
	CodeStringLengthBetween:  "STRING_LENGTH_BETWEEN",
	CodeStringLengthMin:      "STRING_LENGTH_MIN",
	CodeStringLengthMax:      "STRING_LENGTH_MAX",
	CodeStringRegExp:         "STRING_REG_EXP",
	CodeIsNull:               "IS_NULL",
	CodeIsNotNull:            "IS_NOT_NULL",
	CodeStringPrefix:         "STRING_PREFIX",
	CodeStringSuffix:         "STRING_SUFFIX",
	CodeFieldExists:          "FIELD_EXISTS",
	CodeCountBetween:         "COUNT_BETWEEN",
	CodeMatchesSchema:        "MATCHES_SCHEMA",
}

var (
	extraMu    sync.RWMutex
	extraNames = map[ErrorCode]string{}
)

// RegisterCodeName names a caller-defined code past LastErrorCode.
// Panics when c collides with a built-in code.
func RegisterCodeName(c ErrorCode, name string) {
	if c <= LastErrorCode {
		panic(fmt.Sprintf("types: code %d is built in", int(c)))
	}
	extraMu.Lock()
	defer extraMu.Unlock()
	extraNames[c] = name
}

// String returns the SCREAMING_CASE name, or code(N) for unnamed codes.
func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	extraMu.RLock()
	name, ok := extraNames[c]
	extraMu.RUnlock()
	if ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Message template identifiers. These are lookup keys for an external
// message catalog, not display text.
const (
	MsgInvalidValue         = "validation.invalid_value"
	MsgRequired             = "validation.required"
	MsgIsString             = "validation.is_string"
	MsgIsBool               = "validation.is_bool"
	MsgIsInt                = "validation.is_int"
	MsgIsFloat              = "validation.is_float"
	MsgIsNumeric            = "validation.is_numeric"
	MsgIsDateTime           = "validation.is_date_time"
	MsgIsArray              = "validation.is_array"
	MsgDateTimeBetween      = "validation.date_time_between"
	MsgDateTimeEquals       = "validation.date_time_equals"
	MsgDateTimeLessOrEquals = "validation.date_time_less_or_equals"
	MsgDateTimeLessThan     = "validation.date_time_less_than"
	MsgDateTimeMoreOrEquals = "validation.date_time_more_or_equals"
	MsgDateTimeMoreThan     = "validation.date_time_more_than"
	MsgDateTimeNotEquals    = "validation.date_time_not_equals"
	MsgNumericBetween       = "validation.numeric_between"
	MsgNumericLessOrEquals  = "validation.numeric_less_or_equals"
	MsgNumericLessThan      = "validation.numeric_less_than"
	MsgNumericMoreOrEquals  = "validation.numeric_more_or_equals"
	MsgNumericMoreThan      = "validation.numeric_more_than"
	MsgScalarEquals         = "validation.scalar_equals"
	MsgScalarNotEquals      = "validation.scalar_not_equals"
	MsgScalarInValues       = "validation.scalar_in_values"
	MsgStringLengthBetween  = "validation.string_length_between"
	MsgStringLengthMin      = "validation.string_length_min"
	MsgStringLengthMax      = "validation.string_length_max"
	MsgStringRegExp         = "validation.string_reg_exp"
	MsgIsNull               = "validation.is_null"
	MsgIsNotNull            = "validation.is_not_null"
	MsgStringPrefix         = "validation.string_prefix"
	MsgStringSuffix         = "validation.string_suffix"
	MsgFieldExists          = "validation.field_exists"
	MsgCountBetween         = "validation.count_between"
	MsgMatchesSchema        = "validation.matches_schema"
)
