package execution

import (
	"github.com/solatis/ruleblocks/internal/types"
)

// CaptureAggregator maps rule names to the last value captured under them.
type CaptureAggregator struct {
	values map[string]any
	order  []string
}

// NewCaptureAggregator creates an empty aggregator.
func NewCaptureAggregator() *CaptureAggregator {
	return &CaptureAggregator{values: make(map[string]any)}
}

// Remember stores value under name, replacing any earlier capture.
func (c *CaptureAggregator) Remember(name string, value any) {
	if _, seen := c.values[name]; !seen {
		c.order = append(c.order, name)
	}
	c.values[name] = value
}

// Get returns the value captured under name.
func (c *CaptureAggregator) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns captured names in first-capture order.
func (c *CaptureAggregator) Names() []string {
	return append([]string(nil), c.order...)
}

// Map returns a copy of all captures.
func (c *CaptureAggregator) Map() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct captured names.
func (c *CaptureAggregator) Len() int {
	return len(c.values)
}

// Clear drops all captures.
func (c *CaptureAggregator) Clear() {
	c.values = make(map[string]any)
	c.order = nil
}

// ErrorEntry is one validation error, attributed to the named node at BlockIndex.
type ErrorEntry struct {
	Name       string
	BlockIndex int
	Value      any
	Code       types.ErrorCode
	Template   string
	Params     []any
}

// ErrorAggregator accumulates error entries in the order encountered.
type ErrorAggregator struct {
	entries []ErrorEntry
}

// NewErrorAggregator creates an empty aggregator.
func NewErrorAggregator() *ErrorAggregator {
	return &ErrorAggregator{}
}

// Add appends an entry.
func (e *ErrorAggregator) Add(entry ErrorEntry) {
	e.entries = append(e.entries, entry)
}

// Entries returns a copy of the entries in order. Params are copied too.
func (e *ErrorAggregator) Entries() []ErrorEntry {
	out := make([]ErrorEntry, len(e.entries))
	for i, entry := range e.entries {
		entry.Params = append([]any{}, entry.Params...)
		out[i] = entry
	}
	return out
}

// Len returns the number of entries.
func (e *ErrorAggregator) Len() int {
	return len(e.entries)
}

// Clear drops all entries.
func (e *ErrorAggregator) Clear() {
	e.entries = nil
}
