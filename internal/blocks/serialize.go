// internal/blocks/serialize.go
package blocks

import (
	"fmt"

	"github.com/solatis/ruleblocks/internal/types"
)

/*
 * Block tree serialization.
 *
 * Flattens a Block tree into an arena of Nodes addressed by integer index,
 * rewriting child pointers into indices. Procedures carrying start/end hooks
 * are additionally listed in BlocksWithStart/BlocksWithEnd.
 *
 * Serialization workflow:
 *   1. Pre-order traversal; each visited block takes the next free index
 *      (root is FirstBlockIndex)
 *   2. Child pointers become indices once the child subtree is placed
 *   3. Hook registration follows visit order (deterministic)
 *   4. Resource limits (node count, depth) are enforced while walking
 *
 * Malformed trees (nil children, cycles, unknown kinds, missing callables)
 * abort serialization. A block object reachable twice without being its own
 * ancestor is placed twice, at distinct indices, so per-node state never
 * aliases between the two positions.
 */

// FirstBlockIndex is the index of the main tree's root.
const FirstBlockIndex = 0

// Node is one serialized block. Child references are indices into the Set.
type Node struct {
	Kind      Kind
	Execute   ExecuteFunc
	Start     HookFunc
	End       HookFunc
	Condition ConditionFunc
	OnTrue    int
	OnFalse   int
	Primary   int
	Secondary int

	properties Properties
}

// Property returns the static property stored under key.
func (n Node) Property(key PropertyKey) (any, bool) {
	return n.properties.Get(key)
}

// Name returns the node's name property.
func (n Node) Name() string {
	return n.properties.Name()
}

// CaptureEnabled returns the node's capture flag.
func (n Node) CaptureEnabled() bool {
	return n.properties.CaptureEnabled()
}

// Properties returns a copy of the node's properties.
func (n Node) Properties() Properties {
	return n.properties.Clone()
}

// Set is the immutable, index-addressed compiled form of a block tree.
type Set struct {
	nodes     []Node
	withStart []int
	withEnd   []int
}

// Serialize flattens root using the default resource limits.
func Serialize(root *Block) (*Set, error) {
	return SerializeWithLimits(root, types.DefaultLimits())
}

// MustSerialize is like Serialize but panics on a malformed tree.
func MustSerialize(root *Block) *Set {
	set, err := Serialize(root)
	if err != nil {
		panic(err)
	}
	return set
}

// SerializeWithLimits flattens root, enforcing the given limits.
// Zero limit fields fall back to the package defaults.
func SerializeWithLimits(root *Block, limits types.Limits) (*Set, error) {
	defaults := types.DefaultLimits()
	if limits.MaxBlocks <= 0 {
		limits.MaxBlocks = defaults.MaxBlocks
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = defaults.MaxDepth
	}

	s := &serializer{
		limits:    limits,
		ancestors: make(map[*Block]struct{}),
	}
	if _, err := s.visit(root, 1); err != nil {
		return nil, err
	}

	set := &Set{nodes: s.nodes, withStart: s.withStart, withEnd: s.withEnd}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

type serializer struct {
	limits    types.Limits
	ancestors map[*Block]struct{}
	nodes     []Node
	withStart []int
	withEnd   []int
}

// visit places b and its subtree, returning b's index.
func (s *serializer) visit(b *Block, depth int) (int, error) {
	if b == nil {
		return 0, types.ErrNilBlock
	}
	if depth > s.limits.MaxDepth {
		return 0, fmt.Errorf("depth %d: %w", depth, types.ErrBlockTooDeep)
	}
	if _, onPath := s.ancestors[b]; onPath {
		return 0, types.ErrCyclicBlock
	}
	if len(s.nodes) >= s.limits.MaxBlocks {
		return 0, fmt.Errorf("limit %d: %w", s.limits.MaxBlocks, types.ErrTooManyBlocks)
	}
	if err := checkCallables(b); err != nil {
		return 0, err
	}

	index := len(s.nodes)
	s.nodes = append(s.nodes, Node{
		Kind:       b.kind,
		Execute:    b.execute,
		Start:      b.start,
		End:        b.end,
		Condition:  b.condition,
		properties: b.properties,
	})

	if b.kind == KindProcedure {
		if b.start != nil {
			s.withStart = append(s.withStart, index)
		}
		if b.end != nil {
			s.withEnd = append(s.withEnd, index)
		}
		return index, nil
	}

	s.ancestors[b] = struct{}{}
	defer delete(s.ancestors, b)

	first, err := s.visit(b.first, depth+1)
	if err != nil {
		return 0, err
	}
	second, err := s.visit(b.second, depth+1)
	if err != nil {
		return 0, err
	}

	if b.kind == KindIf {
		s.nodes[index].OnTrue, s.nodes[index].OnFalse = first, second
	} else {
		s.nodes[index].Primary, s.nodes[index].Secondary = first, second
	}
	return index, nil
}

// checkCallables verifies a block carries the callable its kind requires.
func checkCallables(b *Block) error {
	switch b.kind {
	case KindProcedure:
		if b.execute == nil {
			return fmt.Errorf("procedure %q: %w", b.properties.Name(), types.ErrMissingCallable)
		}
	case KindIf:
		if b.condition == nil {
			return fmt.Errorf("if %q: %w", b.properties.Name(), types.ErrMissingCallable)
		}
	case KindAnd, KindOr:
	default:
		return fmt.Errorf("kind %d: %w", b.kind, types.ErrUnknownBlockKind)
	}
	return nil
}

// Len returns the number of nodes.
func (s *Set) Len() int {
	return len(s.nodes)
}

// Node returns the node at index. An out-of-range index is an engine bug and panics.
func (s *Set) Node(index int) Node {
	if index < 0 || index >= len(s.nodes) {
		panic(fmt.Sprintf("blocks: node index %d out of range [0,%d)", index, len(s.nodes)))
	}
	return s.nodes[index]
}

// Root returns the main tree root.
func (s *Set) Root() Node {
	return s.Node(FirstBlockIndex)
}

// BlocksWithStart returns the procedure indices with start hooks, in registration order.
func (s *Set) BlocksWithStart() []int {
	return append([]int(nil), s.withStart...)
}

// BlocksWithEnd returns the procedure indices with end hooks, in registration order.
func (s *Set) BlocksWithEnd() []int {
	return append([]int(nil), s.withEnd...)
}

// Validate checks the structural invariants of the set: every child index
// exists, hook lists reference procedures carrying the hook, and every node
// kind is known.
func (s *Set) Validate() error {
	if len(s.nodes) == 0 {
		return types.ErrNilBlock
	}
	inRange := func(i int) bool { return i >= 0 && i < len(s.nodes) }

	for i, n := range s.nodes {
		switch n.Kind {
		case KindProcedure:
			if n.Execute == nil {
				return fmt.Errorf("node %d: %w", i, types.ErrMissingCallable)
			}
		case KindIf:
			if n.Condition == nil {
				return fmt.Errorf("node %d: %w", i, types.ErrMissingCallable)
			}
			if !inRange(n.OnTrue) || !inRange(n.OnFalse) || n.OnTrue <= i || n.OnFalse <= i {
				return fmt.Errorf("node %d: branch index: %w", i, types.ErrNilBlock)
			}
		case KindAnd, KindOr:
			if !inRange(n.Primary) || !inRange(n.Secondary) || n.Primary <= i || n.Secondary <= i {
				return fmt.Errorf("node %d: operand index: %w", i, types.ErrNilBlock)
			}
		default:
			return fmt.Errorf("node %d kind %d: %w", i, n.Kind, types.ErrUnknownBlockKind)
		}
	}

	for _, i := range s.withStart {
		if !inRange(i) || s.nodes[i].Kind != KindProcedure || s.nodes[i].Start == nil {
			return fmt.Errorf("start hook %d: %w", i, types.ErrMissingCallable)
		}
	}
	for _, i := range s.withEnd {
		if !inRange(i) || s.nodes[i].Kind != KindProcedure || s.nodes[i].End == nil {
			return fmt.Errorf("end hook %d: %w", i, types.ErrMissingCallable)
		}
	}
	return nil
}
