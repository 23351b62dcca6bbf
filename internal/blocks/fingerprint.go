package blocks

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Describe returns a canonical, line-per-node description of the set:
// kind, child indices, hook flags, callable identities and properties in key
// order. Identical trees built from the same rule constructors describe
// identically.
func (s *Set) Describe() string {
	var b strings.Builder
	for i, n := range s.nodes {
		fmt.Fprintf(&b, "%d %s", i, n.Kind)
		switch n.Kind {
		case KindProcedure:
			fmt.Fprintf(&b, " exec=%s", funcName(n.Execute))
			if n.Start != nil {
				fmt.Fprintf(&b, " start=%s", funcName(n.Start))
			}
			if n.End != nil {
				fmt.Fprintf(&b, " end=%s", funcName(n.End))
			}
		case KindIf:
			fmt.Fprintf(&b, " cond=%s true=%d false=%d", funcName(n.Condition), n.OnTrue, n.OnFalse)
		case KindAnd, KindOr:
			fmt.Fprintf(&b, " primary=%d secondary=%d", n.Primary, n.Secondary)
		}
		for _, k := range n.properties.Keys() {
			fmt.Fprintf(&b, " p%d=%s", int(k), formatProperty(n.properties[k]))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "start=%v end=%v\n", s.withStart, s.withEnd)
	return b.String()
}

// Fingerprint returns a CIDv1 (raw + sha2-256) over Describe().
// Used as a cache key and recorded alongside validation runs.
func (s *Set) Fingerprint() string {
	return FingerprintText(s.Describe())
}

// FingerprintText returns the CIDv1 (raw + sha2-256) of text. Composite
// validators fingerprint the concatenation of their programs' fingerprints.
func FingerprintText(text string) string {
	sum, err := multihash.Sum([]byte(text), multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.IsNil() {
		return "<nil>"
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return "<unknown>"
}

// formatProperty renders property values without pointer addresses.
func formatProperty(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return fmt.Sprintf("%T(%s)", v, t.String())
	default:
		return fmt.Sprintf("%T(%v)", v, v)
	}
}
