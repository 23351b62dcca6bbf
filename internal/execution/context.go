// Package execution interprets serialized block sets.
//
// One pass owns a fresh Storage, CaptureAggregator and ErrorAggregator; the
// blocks.Set is shared read-only. Concurrency is achieved by giving each
// concurrent pass its own trio.
package execution

import (
	"github.com/solatis/ruleblocks/internal/blocks"
)

// Storage is the per-pass mutable execution state: the current block cursor,
// per-block state slots and a read-only view of the current block's properties.
type Storage struct {
	set     *blocks.Set
	caps    blocks.Capabilities
	current int
	states  map[int]map[blocks.StateKey]any
}

// NewStorage creates storage over set. caps may be nil.
func NewStorage(set *blocks.Set, caps blocks.Capabilities) *Storage {
	return &Storage{
		set:     set,
		caps:    caps,
		current: blocks.FirstBlockIndex,
	}
}

// CurrentBlockID returns the index of the block being evaluated.
func (s *Storage) CurrentBlockID() int {
	return s.current
}

// SetCurrentBlockID moves the cursor. Called by the interpreter before every callable.
func (s *Storage) SetCurrentBlockID(index int) {
	s.current = index
}

// Property reads a static property of the current block, or nil.
func (s *Storage) Property(key blocks.PropertyKey) any {
	v, _ := s.set.Node(s.current).Property(key)
	return v
}

// State reads a state slot of the current block.
func (s *Storage) State(key blocks.StateKey) (any, bool) {
	v, ok := s.states[s.current][key]
	return v, ok
}

// SetState writes a state slot of the current block.
func (s *Storage) SetState(key blocks.StateKey, value any) {
	if s.states == nil {
		s.states = make(map[int]map[blocks.StateKey]any)
	}
	slots, ok := s.states[s.current]
	if !ok {
		slots = make(map[blocks.StateKey]any)
		s.states[s.current] = slots
	}
	slots[key] = value
}

// Capabilities returns the external lookup handle, possibly nil.
func (s *Storage) Capabilities() blocks.Capabilities {
	return s.caps
}

// Clear drops all state and rewinds the cursor so the storage can serve another pass.
func (s *Storage) Clear() {
	s.states = nil
	s.current = blocks.FirstBlockIndex
}

// MapCapabilities is a Capabilities backed by a plain map.
type MapCapabilities map[string]any

// Lookup returns the value registered under name.
func (m MapCapabilities) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}
