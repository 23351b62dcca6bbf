package registry

import (
	"fmt"
	"time"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/rules"
	"github.com/solatis/ruleblocks/internal/types"
	"github.com/solatis/ruleblocks/internal/validator"
)

// Codes of the built-in sample rules, appended after the engine's range.
const (
	CodeIsValidSKU types.ErrorCode = types.LastErrorCode + 1 + iota
	CodeIsDeliveryDate
)

const (
	MsgIsValidSKU      = "sample.is_valid_sku"
	MsgIsDeliveryDate  = "sample.is_delivery_date"
	CapabilityClock    = "clock"
	maxSKU             = 3
	deliveryWindowDays = 5
)

// Clock returns the current time. Register one under CapabilityClock to pin
// the delivery window in tests.
type Clock func() time.Time

// IsSKU accepts integers below maxSKU.
func IsSKU() *rules.Leaf {
	return rules.NewLeaf(executeIsSKU, nil)
}

func executeIsSKU(input any, ctx blocks.Context, _ any) reply.Reply {
	var n int64
	switch v := input.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != float64(int64(v)) {
			return reply.Error(ctx, input, CodeIsValidSKU, MsgIsValidSKU)
		}
		n = int64(v)
	default:
		return reply.Error(ctx, input, CodeIsValidSKU, MsgIsValidSKU)
	}
	if n >= maxSKU {
		return reply.Error(ctx, input, CodeIsValidSKU, MsgIsValidSKU)
	}
	return reply.Success(input)
}

// IsDeliveryDate accepts a time.Time between tomorrow (start of day, UTC) and
// five days from now. Error params are the window bounds.
func IsDeliveryDate() *rules.Leaf {
	return rules.NewLeaf(executeIsDeliveryDate, nil)
}

func executeIsDeliveryDate(input any, ctx blocks.Context, _ any) reply.Reply {
	now := time.Now()
	if caps := ctx.Capabilities(); caps != nil {
		if clock, ok := caps.Lookup(CapabilityClock); ok {
			if fn, ok := clock.(Clock); ok {
				now = fn()
			}
		}
	}
	now = now.UTC()
	from := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	to := now.Add(deliveryWindowDays * 24 * time.Hour)

	t, ok := input.(time.Time)
	if !ok || t.Before(from) || t.After(to) {
		return reply.Error(ctx, input, CodeIsDeliveryDate, MsgIsDeliveryDate, from, to)
	}
	return reply.Success(input)
}

// lineSchema constrains one order line before the per-field rules run.
const lineSchema = `{
	"type": "object",
	"required": ["sku", "qty"],
	"properties": {
		"sku": {"type": "integer"},
		"qty": {"type": "integer", "minimum": 1}
	}
}`

func init() {
	types.RegisterCodeName(CodeIsValidSKU, "IS_VALID_SKU")
	types.RegisterCodeName(CodeIsDeliveryDate, "IS_DELIVERY_DATE")
}

// Default returns a registry with the built-in sample rule sets:
//
//	sku            integer SKU below 3
//	delivery-date  date (YYYY-MM-DD or time) within the delivery window
//	flag           boolean or boolean word, captured as bool
//	order          order record: sku, delivery_date, quantity, email
//	order-lines    1..50 order lines, each matching the line schema
func Default(opts ...validator.Option) (*Registry, error) {
	r := New()

	sku, err := validator.Compile(rules.Captured(rules.Named(IsSKU(), "sku")), opts...)
	if err != nil {
		return nil, err
	}
	delivery, err := validator.Compile(rules.Captured(rules.Named(deliveryDate(), "delivery_date")), opts...)
	if err != nil {
		return nil, err
	}
	flag, err := validator.Compile(rules.Captured(rules.Named(
		rules.Or(rules.IsBool(), rules.And(rules.IsString(), rules.StringToBool())), "flag")), opts...)
	if err != nil {
		return nil, err
	}

	order, err := validator.NewRecord([]validator.FieldRule{
		{Field: "sku", Rule: rules.Captured(rules.Required(IsSKU()))},
		{Field: "delivery_date", Rule: rules.Captured(rules.Required(deliveryDate()))},
		{Field: "quantity", Rule: rules.Captured(rules.Required(rules.And(rules.StringToInt(), rules.NumericBetween(1, 100))))},
		{Field: "email", Rule: rules.And(rules.IsString(), rules.StringRegExp(`^[^@\s]+@[^@\s]+\.[^@\s]+$`))},
	}, opts...)
	if err != nil {
		return nil, err
	}

	line, err := rules.MatchesSchema(lineSchema)
	if err != nil {
		return nil, err
	}
	lines, err := validator.NewSequence(rules.Named(rules.AndAll(
		rules.CountBetween(1, 50),
		line,
		rules.Field("sku", IsSKU()),
	), "lines"), opts...)
	if err != nil {
		return nil, err
	}

	for _, s := range []struct {
		name, description string
		checker           validator.Checker
	}{
		{"sku", "integer SKU below 3", sku},
		{"delivery-date", "delivery date between tomorrow and five days from now", delivery},
		{"flag", "boolean or boolean word", flag},
		{"order", "order record with sku, delivery_date, quantity and optional email", order},
		{"order-lines", "one to fifty order lines", lines},
	} {
		if _, err := r.Register(s.name, s.description, s.checker); err != nil {
			return nil, fmt.Errorf("default registry: %w", err)
		}
	}
	return r, nil
}

// deliveryDate converts date strings and checks the delivery window.
func deliveryDate() rules.Rule {
	return rules.And(rules.StringToDateTime(time.DateOnly), IsDeliveryDate())
}
