// Package blocks provides the execution block model and its serializer.
//
// A rule tree compiles into a tree of Blocks (Procedure, If, And, Or). The
// tree is flattened once by Serialize into an index-addressed Set that the
// interpreter walks. The Set is immutable and may be shared by any number of
// concurrent interpretations.
package blocks

import (
	"sort"

	"github.com/solatis/ruleblocks/internal/reply"
)

// Kind is the closed set of node kinds.
type Kind uint8

const (
	KindProcedure Kind = iota + 1
	KindIf
	KindAnd
	KindOr
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindProcedure:
		return "procedure"
	case KindIf:
		return "if"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "unknown"
	}
}

// Capabilities is an externally owned, read-only resolver for services
// a leaf may need (lookups, configuration). The engine never inspects it.
type Capabilities interface {
	Lookup(name string) (any, bool)
}

// StateKey addresses a per-block state slot.
type StateKey int

// Context is what callables see of the execution state.
// State and properties are scoped to the current block.
type Context interface {
	reply.Cursor
	Property(key PropertyKey) any
	State(key StateKey) (any, bool)
	SetState(key StateKey, value any)
	Capabilities() Capabilities
}

// ExecuteFunc is the leaf contract: (input, context, extras) -> Reply.
type ExecuteFunc func(input any, ctx Context, extras any) reply.Reply

// ConditionFunc selects an If branch. It must not produce errors itself.
type ConditionFunc func(input any, ctx Context, extras any) bool

// HookFunc runs once per pass before or after the main tree walk.
type HookFunc func(ctx Context) []reply.ErrorInfo

// PropertyKey addresses an entry in a block's properties.
// Rule-specific keys start after PropLast.
type PropertyKey int

const (
	PropName PropertyKey = iota
	PropCaptureEnabled

	PropLast = PropCaptureEnabled
)

// Properties holds the static, compile-time-fixed parameters of a block.
type Properties map[PropertyKey]any

// Get returns the value stored under key.
func (p Properties) Get(key PropertyKey) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// Name returns the PropName entry or "".
func (p Properties) Name() string {
	name, _ := p[PropName].(string)
	return name
}

// CaptureEnabled returns the PropCaptureEnabled entry or false.
func (p Properties) CaptureEnabled() bool {
	enabled, _ := p[PropCaptureEnabled].(bool)
	return enabled
}

// Keys returns the keys in ascending order.
func (p Properties) Keys() []PropertyKey {
	keys := make([]PropertyKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Block is one node of the compiled, not yet serialized, block tree.
// Fields are fixed at construction.
type Block struct {
	kind       Kind
	execute    ExecuteFunc
	start      HookFunc
	end        HookFunc
	condition  ConditionFunc
	first      *Block // onTrue for If, primary for And/Or
	second     *Block // onFalse for If, secondary for And/Or
	properties Properties
}

// ProcedureOption configures optional procedure hooks.
type ProcedureOption func(*Block)

// WithStart registers a hook that runs once before the main tree walk.
func WithStart(fn HookFunc) ProcedureOption {
	return func(b *Block) { b.start = fn }
}

// WithEnd registers a hook that runs once after the main tree walk.
func WithEnd(fn HookFunc) ProcedureOption {
	return func(b *Block) { b.end = fn }
}

// NewProcedure creates a leaf block.
func NewProcedure(execute ExecuteFunc, props Properties, opts ...ProcedureOption) *Block {
	b := &Block{
		kind:       KindProcedure,
		execute:    execute,
		properties: props.Clone(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewIf creates a branch block.
func NewIf(condition ConditionFunc, onTrue, onFalse *Block, props Properties) *Block {
	return &Block{
		kind:       KindIf,
		condition:  condition,
		first:      onTrue,
		second:     onFalse,
		properties: props.Clone(),
	}
}

// NewAnd creates a sequential block: secondary receives primary's output.
func NewAnd(primary, secondary *Block, props Properties) *Block {
	return &Block{kind: KindAnd, first: primary, second: secondary, properties: props.Clone()}
}

// NewOr creates a fallback block: secondary runs on the original input if primary fails.
func NewOr(primary, secondary *Block, props Properties) *Block {
	return &Block{kind: KindOr, first: primary, second: secondary, properties: props.Clone()}
}

func (b *Block) Kind() Kind { return b.kind }
func (b *Block) Execute() ExecuteFunc { return b.execute }
func (b *Block) Start() HookFunc { return b.start }
func (b *Block) End() HookFunc { return b.end }
func (b *Block) Condition() ConditionFunc { return b.condition }
func (b *Block) Properties() Properties { return b.properties.Clone() }

// OnTrue returns the If branch taken when the condition holds.
func (b *Block) OnTrue() *Block { return b.first }

// OnFalse returns the If branch taken when the condition fails.
func (b *Block) OnFalse() *Block { return b.second }

// Primary returns the first operand of an And/Or block.
func (b *Block) Primary() *Block { return b.first }

// Secondary returns the second operand of an And/Or block.
func (b *Block) Secondary() *Block { return b.second }
