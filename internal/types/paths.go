package types

import (
	"strconv"
	"strings"
)

// PathSegment is one step of a field path: an object key, an array index or
// a wildcard matching any key or element.
type PathSegment struct {
	Key      string
	Index    int
	IsIndex  bool
	Wildcard bool
}

// FormatPath renders segments in the dotted form accepted by rules.ParsePath.
func FormatPath(path []PathSegment) string {
	var b strings.Builder
	for i, seg := range path {
		switch {
		case seg.Wildcard:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteByte('*')
		case seg.IsIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}
