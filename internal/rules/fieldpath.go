// internal/rules/fieldpath.go
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/types"
)

/*
 * Field path resolution over decoded values.
 *
 * Paths address nested maps and slices as produced by encoding/json,
 * yaml.v3 and structpb: "order.items[0].sku", "lines.*.qty", "[2]".
 * Wildcards have ANY semantics: the first element that resolves wins.
 * MaxPathDepth and MaxNestedWildcards are checked when a path is parsed
 * or resolved.
 *
 * Wildcard on object requires sorted key iteration for deterministic order.
 */

// ResolveResult contains the resolved value and the actual path taken.
type ResolveResult struct {
	Value        any                 // resolved value (nil if not found)
	ResolvedPath []types.PathSegment // path with wildcards replaced by actual indices
	Found        bool                // true if path resolved to a value
}

// ParsePath parses a dotted field path. The empty path addresses the whole input.
func ParsePath(path string) ([]types.PathSegment, error) {
	var segs []types.PathSegment
	if path == "" {
		return segs, nil
	}

	rest := path
	expectKey := true
	for len(rest) > 0 {
		switch {
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("%q: unclosed index: %w", path, types.ErrInvalidPath)
			}
			inner := rest[1:end]
			if inner == "*" {
				segs = append(segs, types.PathSegment{Wildcard: true})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%q: bad index %q: %w", path, inner, types.ErrInvalidPath)
				}
				segs = append(segs, types.PathSegment{Index: n, IsIndex: true})
			}
			rest = rest[end+1:]
			expectKey = false
		case rest[0] == '.':
			if expectKey {
				return nil, fmt.Errorf("%q: empty segment: %w", path, types.ErrInvalidPath)
			}
			rest = rest[1:]
			if rest == "" {
				return nil, fmt.Errorf("%q: trailing dot: %w", path, types.ErrInvalidPath)
			}
			expectKey = true
		default:
			if !expectKey {
				return nil, fmt.Errorf("%q: missing dot before %q: %w", path, rest, types.ErrInvalidPath)
			}
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			key := rest[:end]
			if strings.ContainsRune(key, ']') {
				return nil, fmt.Errorf("%q: stray bracket: %w", path, types.ErrInvalidPath)
			}
			if key == "*" {
				segs = append(segs, types.PathSegment{Wildcard: true})
			} else {
				segs = append(segs, types.PathSegment{Key: key})
			}
			rest = rest[end:]
			expectKey = false
		}
	}

	if err := checkPathLimits(segs); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return segs, nil
}

func checkPathLimits(path []types.PathSegment) error {
	if len(path) > types.MaxPathDepth {
		return types.ErrPathTooDeep
	}

	wildcardCount := 0
	for _, seg := range path {
		if seg.Wildcard {
			wildcardCount++
		}
	}
	if wildcardCount > types.MaxNestedWildcards {
		return types.ErrTooManyWildcards
	}
	return nil
}

// Resolve traverses data following path segments.
// Returns ErrPathTooDeep or ErrTooManyWildcards when the path exceeds limits.
// Returns ErrFieldNotFound if path does not exist in data.
func Resolve(path []types.PathSegment, data any) (ResolveResult, error) {
	if err := checkPathLimits(path); err != nil {
		return ResolveResult{}, err
	}
	return resolveRecursive(path, data, nil)
}

// ResolveJSON decodes data and resolves path in it. Numbers decode as float64.
func ResolveJSON(path []types.PathSegment, data json.RawMessage) (ResolveResult, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ResolveResult{}, err
	}
	return Resolve(path, parsed)
}

// resolveRecursive returns first match for wildcards (ANY semantics).
// Accumulates resolved path with actual indices/keys replacing wildcards.
func resolveRecursive(path []types.PathSegment, current any, resolvedSoFar []types.PathSegment) (ResolveResult, error) {
	if len(path) == 0 {
		return ResolveResult{
			Value:        current,
			ResolvedPath: resolvedSoFar,
			Found:        true,
		}, nil
	}

	seg := path[0]
	remaining := path[1:]

	// Copy before appending so sibling wildcard branches never share a backing array.
	extend := func(s types.PathSegment) []types.PathSegment {
		out := make([]types.PathSegment, len(resolvedSoFar), len(resolvedSoFar)+1)
		copy(out, resolvedSoFar)
		return append(out, s)
	}

	switch v := current.(type) {
	case map[string]any:
		if seg.Wildcard {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				result, err := resolveRecursive(remaining, v[key], extend(types.PathSegment{Key: key}))
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if seg.IsIndex {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		val, ok := v[seg.Key]
		if !ok {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, val, extend(seg))

	case []any:
		if seg.Wildcard {
			for i, elem := range v {
				result, err := resolveRecursive(remaining, elem, extend(types.PathSegment{Index: i, IsIndex: true}))
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index], extend(seg))

	default:
		// nil or scalar but path continues
		return ResolveResult{}, types.ErrFieldNotFound
	}
}

// FieldRule extracts a nested value and hands it to the next rule.
type FieldRule struct {
	Base
	path []types.PathSegment
	next Rule
}

// Field validates the value at path with next. A missing field fails with
// FIELD_EXISTS. Panics if path does not parse; use ParsePath to check first.
func Field(path string, next Rule) *FieldRule {
	segs, err := ParsePath(path)
	if err != nil {
		panic(fmt.Sprintf("rules: Field(%q): %v", path, err))
	}
	r := &FieldRule{path: segs, next: next}
	if next != nil {
		next.SetParent(r)
	}
	return r
}

// Path returns the parsed path.
func (r *FieldRule) Path() []types.PathSegment {
	return append([]types.PathSegment(nil), r.path...)
}

func (r *FieldRule) ToBlock() *blocks.Block {
	props := blocks.Properties{PropPath: fieldPath(r.path)}
	if r.next == nil {
		return blocks.NewProcedure(executeExtract, r.BlockProperties(props))
	}

	extractProps := r.BlockProperties(props)
	extractProps[blocks.PropCaptureEnabled] = false
	extract := blocks.NewProcedure(executeExtract, extractProps)
	return blocks.NewAnd(extract, r.next.ToBlock(), r.BlockProperties(nil))
}

// fieldPath is the property form of a parsed path.
type fieldPath []types.PathSegment

func (p fieldPath) String() string { return types.FormatPath(p) }

func executeExtract(input any, ctx blocks.Context, _ any) reply.Reply {
	path, _ := ctx.Property(PropPath).(fieldPath)
	result, err := Resolve(path, input)
	if err != nil || !result.Found {
		return reply.Error(ctx, input, types.CodeFieldExists, types.MsgFieldExists, path.String())
	}
	return reply.Success(result.Value)
}
