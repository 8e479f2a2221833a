package query

import (
	"fmt"
	"strings"
)

// Key identifies a cached query: an operation name followed by every
// parameter that affects the result.
type Key []any

type wildcard struct{}

// Any matches any single key element in a pattern.
var Any any = wildcard{}

// K builds a Key from its parts.
func K(parts ...any) Key {
	return Key(parts)
}

// Matches reports whether k matches pattern. A pattern matches every key it
// is a prefix of, element by element, with Any matching any element. The
// empty pattern matches all keys.
func (k Key) Matches(pattern Key) bool {
	if len(pattern) > len(k) {
		return false
	}
	for i, p := range pattern {
		if _, ok := p.(wildcard); ok {
			continue
		}
		if part(p) != part(k[i]) {
			return false
		}
	}
	return true
}

// String renders the key as a tuple, e.g. ("posts", "", "", 1, "").
func (k Key) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range k {
		if i > 0 {
			b.WriteString(", ")
		}
		switch v := p.(type) {
		case string:
			fmt.Fprintf(&b, "%q", v)
		case wildcard:
			b.WriteByte('*')
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	b.WriteByte(')')
	return b.String()
}

func (k Key) hash() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = part(p)
	}
	return strings.Join(parts, "\x1f")
}

func (k Key) clone() Key {
	if k == nil {
		return nil
	}
	dup := make(Key, len(k))
	copy(dup, k)
	return dup
}

func part(p any) string {
	return fmt.Sprintf("%T:%v", p, p)
}
