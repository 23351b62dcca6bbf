package rules

import (
	"github.com/solatis/ruleblocks/internal/blocks"
)

// AndRule threads the primary's output into the secondary.
type AndRule struct {
	Base
	primary   Rule
	secondary Rule
}

// And runs primary then, on success, secondary over primary's output.
// It becomes the parent of both operands.
func And(primary, secondary Rule) *AndRule {
	r := &AndRule{primary: primary, secondary: secondary}
	primary.SetParent(r)
	secondary.SetParent(r)
	return r
}

func (r *AndRule) ToBlock() *blocks.Block {
	return blocks.NewAnd(r.primary.ToBlock(), r.secondary.ToBlock(), r.BlockProperties(nil))
}

// OrRule falls back to the secondary over the original input.
type OrRule struct {
	Base
	primary   Rule
	secondary Rule
}

// Or runs primary and, only if it fails, secondary on the same input.
// It becomes the parent of both operands.
func Or(primary, secondary Rule) *OrRule {
	r := &OrRule{primary: primary, secondary: secondary}
	primary.SetParent(r)
	secondary.SetParent(r)
	return r
}

func (r *OrRule) ToBlock() *blocks.Block {
	return blocks.NewOr(r.primary.ToBlock(), r.secondary.ToBlock(), r.BlockProperties(nil))
}

// Condition is the predicate of an IfRule.
type Condition func(input any, ctx blocks.Context, extras any) bool

// IfRule selects one of two branches with a predicate.
type IfRule struct {
	Base
	condition Condition
	onTrue    Rule
	onFalse   Rule
	props     blocks.Properties
}

// If evaluates condition and continues with onTrue or onFalse. props are
// readable by the condition through the context and may be nil. It becomes
// the parent of both branches.
func If(condition Condition, onTrue, onFalse Rule, props blocks.Properties) *IfRule {
	r := &IfRule{condition: condition, onTrue: onTrue, onFalse: onFalse, props: props.Clone()}
	onTrue.SetParent(r)
	onFalse.SetParent(r)
	return r
}

func (r *IfRule) ToBlock() *blocks.Block {
	return blocks.NewIf(blocks.ConditionFunc(r.condition), r.onTrue.ToBlock(), r.onFalse.ToBlock(), r.BlockProperties(r.props))
}

// AndAll folds rules left to right into nested And rules. An empty list is Success.
func AndAll(rules ...Rule) Rule {
	return fold(rules, func(a, b Rule) Rule { return And(a, b) })
}

// OrAny folds rules left to right into nested Or rules. An empty list is Success.
func OrAny(rules ...Rule) Rule {
	return fold(rules, func(a, b Rule) Rule { return Or(a, b) })
}

func fold(rules []Rule, join func(a, b Rule) Rule) Rule {
	if len(rules) == 0 {
		return Success()
	}
	acc := rules[0]
	for _, next := range rules[1:] {
		acc = join(acc, next)
	}
	return acc
}
