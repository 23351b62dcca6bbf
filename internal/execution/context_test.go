package execution

import (
	"testing"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
)

func TestStorage_PropertyAndStateScopedToCursor(t *testing.T) {
	const key blocks.StateKey = 1
	leafFn := func(input any, _ blocks.Context, _ any) reply.Reply { return reply.Success(input) }
	set := blocks.MustSerialize(blocks.NewAnd(
		blocks.NewProcedure(leafFn, blocks.Properties{blocks.PropName: "left", blocks.PropLast + 1: 10}),
		blocks.NewProcedure(leafFn, blocks.Properties{blocks.PropName: "right", blocks.PropLast + 1: 20}),
		blocks.Properties{blocks.PropName: "and"},
	))
	s := NewStorage(set, MapCapabilities{"db": "handle"})

	s.SetCurrentBlockID(1)
	if got := s.Property(blocks.PropLast + 1); got != 10 {
		t.Errorf("Property() at 1 = %v, want 10", got)
	}
	s.SetState(key, "one")

	s.SetCurrentBlockID(2)
	if got := s.Property(blocks.PropName); got != "right" {
		t.Errorf("Property(PropName) at 2 = %v, want right", got)
	}
	if _, ok := s.State(key); ok {
		t.Errorf("State() at 2 sees state written at 1")
	}
	if got := s.Property(blocks.PropLast + 5); got != nil {
		t.Errorf("Property(missing) = %v, want nil", got)
	}

	s.SetCurrentBlockID(1)
	if v, ok := s.State(key); !ok || v != "one" {
		t.Errorf("State() at 1 = %v, %v, want one, true", v, ok)
	}
	if v, ok := s.Capabilities().Lookup("db"); !ok || v != "handle" {
		t.Errorf("Capabilities().Lookup(db) = %v, %v, want handle, true", v, ok)
	}

	s.Clear()
	if s.CurrentBlockID() != blocks.FirstBlockIndex {
		t.Errorf("CurrentBlockID() after Clear = %v, want %v", s.CurrentBlockID(), blocks.FirstBlockIndex)
	}
	s.SetCurrentBlockID(1)
	if _, ok := s.State(key); ok {
		t.Errorf("State() survives Clear")
	}
}

func TestErrorAggregator_EntriesCopiesParams(t *testing.T) {
	e := NewErrorAggregator()
	e.Add(ErrorEntry{Name: "x", Params: []any{1, 2}})

	first := e.Entries()
	first[0].Params[0] = 99
	if got := e.Entries()[0].Params[0]; got != 1 {
		t.Errorf("Params[0] = %v after mutating a returned entry, want 1", got)
	}
}

func TestAggregators_Clear(t *testing.T) {
	c := NewCaptureAggregator()
	c.Remember("a", 1)
	c.Remember("b", 2)
	c.Remember("a", 3)
	if c.Len() != 2 || c.Names()[0] != "a" {
		t.Errorf("captures = %v %v, want 2 names with a first", c.Len(), c.Names())
	}
	if v, _ := c.Get("a"); v != 3 {
		t.Errorf("Get(a) = %v, want last remembered 3", v)
	}
	c.Clear()
	if c.Len() != 0 || len(c.Names()) != 0 {
		t.Errorf("captures after Clear = %v", c.Map())
	}

	e := NewErrorAggregator()
	e.Add(ErrorEntry{Name: "x"})
	e.Add(ErrorEntry{Name: "y"})
	if e.Len() != 2 || e.Entries()[1].Name != "y" {
		t.Errorf("errors = %+v, want [x y]", e.Entries())
	}
	e.Clear()
	if e.Len() != 0 {
		t.Errorf("errors after Clear = %v, want none", e.Entries())
	}
}
