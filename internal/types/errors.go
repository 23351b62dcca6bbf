package types

import "errors"

// Sentinel errors for compilation and rule construction.
// Validation failures are never reported through these; they are data.
var (
	// ErrNilBlock indicates a combinator references a missing child block.
	ErrNilBlock = errors.New("block tree references a nil block")

	// ErrCyclicBlock indicates a block is reachable from itself.
	ErrCyclicBlock = errors.New("block tree contains a cycle")

	// ErrTooManyBlocks indicates a tree exceeds MaxBlocks nodes.
	ErrTooManyBlocks = errors.New("block tree exceeds maximum node count")

	// ErrBlockTooDeep indicates a tree exceeds MaxBlockDepth levels.
	ErrBlockTooDeep = errors.New("block tree exceeds maximum depth")

	// ErrUnknownBlockKind indicates a block with a kind outside the closed set.
	ErrUnknownBlockKind = errors.New("unknown block kind")

	// ErrMissingCallable indicates a block without its required callable.
	ErrMissingCallable = errors.New("block is missing its callable")

	// ErrInvalidRule indicates rule construction arguments are inconsistent.
	ErrInvalidRule = errors.New("invalid rule definition")

	// ErrRuleSetNotFound indicates a lookup for an unregistered rule set.
	ErrRuleSetNotFound = errors.New("rule set not found")

	// ErrDuplicateRuleSet indicates a rule set name was registered twice.
	ErrDuplicateRuleSet = errors.New("rule set already registered")

	// ErrFieldNotFound indicates a field path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrCoercionFailed indicates type coercion failed.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth segments.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrTooManyWildcards indicates a field path exceeds MaxNestedWildcards.
	ErrTooManyWildcards = errors.New("field path exceeds maximum wildcard count")

	// ErrInvalidPath indicates a field path expression could not be parsed.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrRunNotFound indicates a lookup for an unrecorded validation run.
	ErrRunNotFound = errors.New("validation run not found")
)
