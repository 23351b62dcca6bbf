// internal/execution/interpreter.go
package execution

import (
	"fmt"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
)

/*
 * Block interpretation.
 *
 * Walks a serialized blocks.Set against one input value, collecting captures
 * and errors into caller-owned aggregators.
 *
 * Pass structure:
 *   1. Start hooks, in BlocksWithStart order; all run, failures merge into errors
 *   2. Main tree from FirstBlockIndex
 *   3. End hooks, in BlocksWithEnd order; all run, failures merge into errors
 *   Result = starts ok && main ok && ends ok. Phases never suppress each other.
 *
 * Node semantics:
 *   - Procedure: invoke Execute(input, ctx, extras)
 *   - If: Condition picks OnTrue or OnFalse; only the branch can fail
 *   - And: secondary receives primary's output; primary failure short-circuits
 *   - Or: secondary receives the original input and runs only if primary
 *     fails; when both fail their errors concatenate, primary first
 *   Every node, leaf or combinator, captures its successful output under its
 *   name when its own capture flag is set.
 *
 * Cursor discipline: ctx.SetCurrentBlockID is written immediately before each
 * callable so error attribution and per-block state never read a stale index.
 *
 * Structural faults (unknown kind, missing hook, out-of-range index) indicate
 * a compiler bug and panic; they are never reported as validation errors.
 */

// Execute runs one full pass (starts, main tree, ends) with nil extras.
// Returns true iff no errors were produced in this pass.
func Execute(input any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator, errs *ErrorAggregator) bool {
	return ExecuteWithExtras(input, nil, set, ctx, captures, errs)
}

// ExecuteWithExtras is Execute with an auxiliary value threaded unchanged to every callable.
func ExecuteWithExtras(input, extras any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator, errs *ErrorAggregator) bool {
	startsOK := ExecuteStarts(set, ctx, errs)
	blockOK := ExecuteBlock(input, blocks.FirstBlockIndex, extras, set, ctx, captures, errs)
	endsOK := ExecuteEnds(set, ctx, errs)

	return startsOK && blockOK && endsOK
}

// ExecuteStarts runs every start hook in registration order.
func ExecuteStarts(set *blocks.Set, ctx *Storage, errs *ErrorAggregator) bool {
	return executeHooks(set.BlocksWithStart(), set, ctx, errs, func(n blocks.Node) blocks.HookFunc { return n.Start })
}

// ExecuteEnds runs every end hook in registration order.
func ExecuteEnds(set *blocks.Set, ctx *Storage, errs *ErrorAggregator) bool {
	return executeHooks(set.BlocksWithEnd(), set, ctx, errs, func(n blocks.Node) blocks.HookFunc { return n.End })
}

// ExecuteBlock evaluates the subtree at index and records its errors.
func ExecuteBlock(input any, index int, extras any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator, errs *ErrorAggregator) bool {
	result := executeBlockImpl(input, index, extras, set, ctx, captures)
	if !result.OK() {
		addBlockErrors(result.Errors(), set, errs)
		return false
	}
	return true
}

func executeHooks(indexes []int, set *blocks.Set, ctx *Storage, errs *ErrorAggregator, hookOf func(blocks.Node) blocks.HookFunc) bool {
	allOK := true

	for _, index := range indexes {
		node := set.Node(index)
		hook := hookOf(node)
		if node.Kind != blocks.KindProcedure || hook == nil {
			panic(fmt.Sprintf("execution: hook index %d is not a procedure with a hook", index))
		}

		ctx.SetCurrentBlockID(index)
		if infos := hook(ctx); len(infos) > 0 {
			addBlockErrors(infos, set, errs)
			allOK = false
		}
	}

	return allOK
}

func executeBlockImpl(input any, index int, extras any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator) reply.Reply {
	node := set.Node(index)
	ctx.SetCurrentBlockID(index)

	var result reply.Reply
	switch node.Kind {
	case blocks.KindProcedure:
		result = node.Execute(input, ctx, extras)
	case blocks.KindIf:
		result = executeIf(input, node, extras, set, ctx, captures)
	case blocks.KindAnd:
		result = executeAnd(input, node, extras, set, ctx, captures)
	case blocks.KindOr:
		result = executeOr(input, node, extras, set, ctx, captures)
	default:
		panic(fmt.Sprintf("execution: node %d has unknown kind %d", index, node.Kind))
	}

	captureIfEnabled(result, node, captures)
	return result
}

// executeIf evaluates the condition then the selected branch.
func executeIf(input any, node blocks.Node, extras any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator) reply.Reply {
	branch := node.OnFalse
	if node.Condition(input, ctx, extras) {
		branch = node.OnTrue
	}
	return executeBlockImpl(input, branch, extras, set, ctx, captures)
}

// executeAnd threads primary's output into secondary. Short-circuits on primary failure.
func executeAnd(input any, node blocks.Node, extras any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator) reply.Reply {
	result := executeBlockImpl(input, node.Primary, extras, set, ctx, captures)
	if !result.OK() {
		return result
	}
	return executeBlockImpl(result.Value(), node.Secondary, extras, set, ctx, captures)
}

// executeOr falls back to secondary on the original input if primary fails.
func executeOr(input any, node blocks.Node, extras any, set *blocks.Set, ctx *Storage, captures *CaptureAggregator) reply.Reply {
	primary := executeBlockImpl(input, node.Primary, extras, set, ctx, captures)
	if primary.OK() {
		return primary
	}

	secondary := executeBlockImpl(input, node.Secondary, extras, set, ctx, captures)
	if secondary.OK() {
		return secondary
	}

	infos := make([]reply.ErrorInfo, 0, len(primary.Errors())+len(secondary.Errors()))
	infos = append(infos, primary.Errors()...)
	infos = append(infos, secondary.Errors()...)
	return reply.Failure(infos...)
}

func captureIfEnabled(result reply.Reply, node blocks.Node, captures *CaptureAggregator) {
	if result.OK() && node.CaptureEnabled() {
		captures.Remember(node.Name(), result.Value())
	}
}

// addBlockErrors converts reply errors into entries named after the node at
// each entry's block index.
func addBlockErrors(infos []reply.ErrorInfo, set *blocks.Set, errs *ErrorAggregator) {
	for _, info := range infos {
		errs.Add(ErrorEntry{
			Name:       set.Node(info.BlockIndex).Name(),
			BlockIndex: info.BlockIndex,
			Value:      info.Value,
			Code:       info.Code,
			Template:   info.Template,
			Params:     info.Params,
		})
	}
}
