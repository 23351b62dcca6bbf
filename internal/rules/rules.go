// Package rules provides the authoring model of the engine: small rule
// objects that compile into blocks.Block trees.
//
// A rule owns its operands and its children; the parent link is a plain
// back-reference used only to resolve names for error attribution. Calling
// ToBlock is pure: the same rule yields an equivalent tree every time.
package rules

import (
	"github.com/solatis/ruleblocks/internal/blocks"
)

// Rule-specific property keys. Values live in block properties so leaves and
// conditions read their operands through the execution context.
const (
	PropErrorCode blocks.PropertyKey = blocks.PropLast + 1 + iota
	PropErrorTemplate
	PropErrorParams
	PropValue
	PropValues
	PropLower
	PropUpper
	PropPattern
	PropLayout
	PropPath
	PropSchema
)

// Rule is one composable validation or transformation step.
type Rule interface {
	// Name returns the rule's own name, possibly empty.
	Name() string
	SetName(name string)
	UnsetName()

	// ResolvedName returns the own name, else the nearest named ancestor's.
	ResolvedName() string

	CaptureEnabled() bool
	EnableCapture()
	DisableCapture()

	// A rule has at most one parent. Composing the same value into a
	// second composite replaces its parent, so an unnamed operand takes its
	// name from the composite built last. Build a fresh rule per use when
	// the enclosing names differ.
	Parent() Rule
	SetParent(parent Rule)
	UnsetParent()

	// ToBlock compiles the rule into an execution block tree.
	ToBlock() *blocks.Block
}

// Base carries the state shared by every rule. Embed it and implement ToBlock.
type Base struct {
	name    string
	capture bool
	parent  Rule
}

func (b *Base) Name() string { return b.name }
func (b *Base) SetName(name string) { b.name = name }
func (b *Base) UnsetName() { b.name = "" }
func (b *Base) CaptureEnabled() bool { return b.capture }
func (b *Base) EnableCapture() { b.capture = true }
func (b *Base) DisableCapture() { b.capture = false }
func (b *Base) Parent() Rule { return b.parent }
func (b *Base) SetParent(parent Rule) { b.parent = parent }
func (b *Base) UnsetParent() { b.parent = nil }

// ResolvedName walks parent links until a non-empty name is found.
func (b *Base) ResolvedName() string {
	if b.name != "" {
		return b.name
	}
	if b.parent != nil {
		return b.parent.ResolvedName()
	}
	return ""
}

// BlockProperties returns the name and capture properties merged with extra.
// Rules defined outside this package use it to build their blocks.
func (b *Base) BlockProperties(extra blocks.Properties) blocks.Properties {
	props := make(blocks.Properties, len(extra)+2)
	for k, v := range extra {
		props[k] = v
	}
	props[blocks.PropName] = b.ResolvedName()
	props[blocks.PropCaptureEnabled] = b.capture
	return props
}

// Named sets name on r and returns it.
func Named[R Rule](r R, name string) R {
	r.SetName(name)
	return r
}

// Captured enables capture on r and returns it.
func Captured[R Rule](r R) R {
	r.EnableCapture()
	return r
}
