// Package types provides domain models shared across the rule block engine.
//
// Zero-dependency design: codes.go, types.go and errors.go use only the standard
// library so leaf rule packages can import them without pulling in the rest of
// the engine. ID utilities in ids.go import uuid but are isolated.
package types

// Resource limits enforced at compilation to keep interpretation bounded.
const (
	// MaxBlocks limits the number of nodes in one serialized block set.
	// 4096 nodes covers deeply composed record schemas without letting a
	// generated rule tree grow the arena without bound.
	MaxBlocks = 4096

	// MaxBlockDepth prevents stack exhaustion in the recursive interpreter.
	// 64 levels of AND/OR/IF nesting is far beyond hand-written rules.
	MaxBlockDepth = 64

	// MaxPathDepth limits the number of segments in a field path.
	MaxPathDepth = 16

	// MaxNestedWildcards limits wildcard segments per field path.
	// Each wildcard multiplies traversal by the fan-out of one level.
	MaxNestedWildcards = 2
)

// Limits bundles the compile-time resource limits.
type Limits struct {
	MaxBlocks int
	MaxDepth  int
}

// DefaultLimits returns the package-level resource limits.
func DefaultLimits() Limits {
	return Limits{
		MaxBlocks: MaxBlocks,
		MaxDepth:  MaxBlockDepth,
	}
}
