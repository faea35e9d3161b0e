// Package docpath addresses locations inside a document tree.
//
// A Path is a structured list of key and index segments. It is the only
// addressing mechanism between the renderer, the coverage registry and the
// edit pipeline; the dot/bracket string form exists for the wire only.
package docpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Segment is a single step into a tree: an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns an object-key segment.
func Key(k string) Segment { return Segment{key: k} }

// Index returns an array-index segment.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether the segment is an array index.
func (s Segment) IsIndex() bool { return s.isIndex }

// Key returns the object key. It is empty for index segments.
func (s Segment) Key() string { return s.key }

// Index returns the array index. It is zero for key segments.
func (s Segment) Index() int { return s.index }

func (s Segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	if bareKey(s.key) {
		return s.key
	}
	return "[" + strconv.Quote(s.key) + "]"
}

// Path is an ordered sequence of segments from the document root.
type Path []Segment

// Root is the empty path.
var Root = Path{}

// Of builds a path from strings (keys) and ints (indices). Any other type
// panics; Of is meant for literals.
func Of(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		case Segment:
			p = append(p, v)
		default:
			panic(fmt.Sprintf("docpath.Of: unsupported segment type %T", part))
		}
	}
	return p
}

// Append returns a new path with segs added. The receiver is never shared
// with the result.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, len(p), len(p)+len(segs))
	copy(out, p)
	return append(out, segs...)
}

// Child returns p + [key].
func (p Path) Child(key string) Path { return p.Append(Key(key)) }

// At returns p + [i].
func (p Path) At(i int) Path { return p.Append(Index(i)) }

// Len returns the number of segments.
func (p Path) Len() int { return len(p) }

// Last returns the final segment. ok is false for the root path.
func (p Path) Last() (seg Segment, ok bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// Parent returns the path without its last segment. The parent of the root is
// the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Root
	}
	return p.Append()[:len(p)-1]
}

// Equal reports whether both paths have the same segment sequence.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor of p or equal to it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// String returns the wire form, e.g. `arms[0].name` or `meta["a.b"]`.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 && !s.isIndex && bareKey(s.key) {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler using the wire form.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the wire form.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ErrSyntax is wrapped by every Parse failure.
var ErrSyntax = errors.New("invalid path")

// Parse is the inverse of Path.String.
func Parse(s string) (Path, error) {
	p := Path{}
	i := 0
	expectKey := true
	for i < len(s) {
		switch s[i] {
		case '.':
			if expectKey {
				return nil, fmt.Errorf("%w: empty key at offset %d in %q", ErrSyntax, i, s)
			}
			i++
			expectKey = true
			if i == len(s) {
				return nil, fmt.Errorf("%w: trailing dot in %q", ErrSyntax, s)
			}
		case '[':
			seg, n, err := parseBracket(s[i:])
			if err != nil {
				return nil, fmt.Errorf("%w: %s at offset %d in %q", ErrSyntax, err, i, s)
			}
			p = append(p, seg)
			i += n
			expectKey = false
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: missing separator at offset %d in %q", ErrSyntax, i, s)
			}
			end := i
			for end < len(s) && s[end] != '.' && s[end] != '[' {
				if s[end] == ']' || s[end] == '"' || s[end] == '\\' {
					return nil, fmt.Errorf("%w: unexpected %q at offset %d in %q", ErrSyntax, s[end], end, s)
				}
				end++
			}
			p = append(p, Key(s[i:end]))
			i = end
			expectKey = false
		}
	}
	return p, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseBracket(s string) (Segment, int, error) {
	if len(s) > 1 && s[1] == '"' {
		quoted, err := strconv.QuotedPrefix(s[1:])
		if err != nil {
			return Segment{}, 0, fmt.Errorf("bad quoted key")
		}
		end := 1 + len(quoted)
		if end >= len(s) || s[end] != ']' {
			return Segment{}, 0, fmt.Errorf("unterminated bracket")
		}
		key, err := strconv.Unquote(quoted)
		if err != nil {
			return Segment{}, 0, fmt.Errorf("bad quoted key")
		}
		return Key(key), end + 1, nil
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Segment{}, 0, fmt.Errorf("unterminated bracket")
	}
	n, err := strconv.Atoi(s[1:end])
	if err != nil || n < 0 || s[1] == '+' || s[1] == '-' {
		return Segment{}, 0, fmt.Errorf("bad index %q", s[1:end])
	}
	return Index(n), end + 1, nil
}

func bareKey(k string) bool {
	return k != "" && !strings.ContainsAny(k, `.[]"\`)
}
