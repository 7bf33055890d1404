// Package attrpath models the dotted attribute paths used to address a
// value inside a Nix attribute set.
package attrpath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidAttributePath is returned for empty paths and segments that
// cannot be represented.
var ErrInvalidAttributePath = errors.New("invalid attribute path")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_'-]*$`)

// keywords cannot be written as bare attribute names.
var keywords = map[string]bool{
	"assert": true, "else": true, "if": true, "in": true, "inherit": true,
	"let": true, "or": true, "rec": true, "then": true, "with": true,
}

// IsIdentifier reports whether s can be written as a bare Nix identifier.
func IsIdentifier(s string) bool {
	return identRe.MatchString(s) && !keywords[s]
}

// Segment is one attribute name, stored unquoted.
type Segment string

// NixForms returns every source spelling of the segment. Identifiers can
// appear bare or quoted; anything else only quoted.
func (s Segment) NixForms() []string {
	quoted := Quote(string(s))
	if IsIdentifier(string(s)) {
		return []string{string(s), quoted}
	}
	return []string{quoted}
}

// String renders the segment the way it would be written in a binding.
func (s Segment) String() string {
	if IsIdentifier(string(s)) {
		return string(s)
	}
	return Quote(string(s))
}

// Path is a non-empty sequence of segments.
type Path []Segment

// New builds a Path from raw, already-unquoted segment names.
func New(segments ...string) (Path, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidAttributePath)
	}
	p := make(Path, len(segments))
	for i, s := range segments {
		if err := checkSegment(s); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrInvalidAttributePath, i, err)
		}
		p[i] = Segment(s)
	}
	return p, nil
}

// MustNew is New for literals in tests and tables.
func MustNew(segments ...string) Path {
	p, err := New(segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse reads a path written in Nix syntax: segments separated by dots,
// each either a bare name or a double-quoted string.
//
//	maintainers
//	meta.maintainers
//	services."nginx.conf".enable
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidAttributePath)
	}

	var (
		segs    []string
		cur     strings.Builder
		quoted  bool // current segment was quoted
		inQuote bool
	)
	flush := func(at int) error {
		seg := cur.String()
		if seg == "" && !quoted {
			return fmt.Errorf("%w: empty segment at offset %d", ErrInvalidAttributePath, at)
		}
		if !quoted && !IsIdentifier(seg) {
			return fmt.Errorf("%w: %q is not an identifier, quote it", ErrInvalidAttributePath, seg)
		}
		segs = append(segs, seg)
		cur.Reset()
		quoted = false
		return nil
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("%w: trailing escape in %q", ErrInvalidAttributePath, s)
			}
			i++
			switch s[i] {
			case 'n':
				cur.WriteByte('\n')
			case 't':
				cur.WriteByte('\t')
			case 'r':
				cur.WriteByte('\r')
			default:
				cur.WriteByte(s[i])
			}
		case inQuote && c == '"':
			inQuote = false
		case inQuote:
			cur.WriteByte(c)
		case c == '"':
			if cur.Len() > 0 || quoted {
				return nil, fmt.Errorf("%w: unexpected quote at offset %d", ErrInvalidAttributePath, i)
			}
			inQuote, quoted = true, true
		case c == '.':
			if err := flush(i); err != nil {
				return nil, err
			}
		default:
			if quoted {
				return nil, fmt.Errorf("%w: text after closing quote at offset %d", ErrInvalidAttributePath, i)
			}
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidAttributePath, s)
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return New(segs...)
}

// Segments returns the unquoted segment names.
func (p Path) Segments() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = string(s)
	}
	return out
}

// String renders the path in Nix syntax; Parse(p.String()) == p.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Quote renders s as a Nix double-quoted string.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '$':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteString(`\$`)
			} else {
				b.WriteByte(c)
			}
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func checkSegment(s string) error {
	if s == "" {
		return errors.New("empty segment")
	}
	for _, r := range s {
		if r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r') {
			return fmt.Errorf("control character %U", r)
		}
	}
	return nil
}
