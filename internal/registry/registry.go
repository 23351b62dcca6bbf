// Package registry holds named, fingerprinted rule sets so transports and
// the CLI can address them by name.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/solatis/ruleblocks/internal/types"
	"github.com/solatis/ruleblocks/internal/validator"
)

// Entry is one registered rule set.
type Entry struct {
	ID          types.RuleSetID
	Name        string
	Description string
	Fingerprint string
	Checker     validator.Checker
}

// Validate runs the entry's checker.
func (e *Entry) Validate(input any) validator.Result {
	return e.Checker.Validate(input)
}

// Registry maps rule set names to entries. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds checker under name.
// Returns ErrDuplicateRuleSet if name is taken.
func (r *Registry) Register(name, description string, checker validator.Checker) (*Entry, error) {
	if name == "" || checker == nil {
		return nil, fmt.Errorf("register %q: %w", name, types.ErrInvalidRule)
	}

	entry := &Entry{
		ID:          types.NewRuleSetID(),
		Name:        name,
		Description: description,
		Fingerprint: checker.Fingerprint(),
		Checker:     checker,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return nil, fmt.Errorf("register %q: %w", name, types.ErrDuplicateRuleSet)
	}
	r.entries[name] = entry
	return entry, nil
}

// Get returns the entry registered under name.
// Returns ErrRuleSetNotFound if there is none.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, types.ErrRuleSetNotFound)
	}
	return entry, nil
}

// List returns all entries sorted by name.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
