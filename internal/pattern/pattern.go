// Package pattern builds tree-sitter query patterns as values instead of
// format strings. Every piece of user data enters a pattern through a
// predicate argument and is escaped on render, so composing patterns can
// never change their structure.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned by Validate and Render.
var ErrInvalidPattern = errors.New("invalid pattern")

// Any matches any named node.
const Any = "_"

var (
	symbolRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	captureRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// Node matches one syntax node.
type Node struct {
	Kind  string // node type, or Any
	Field string // required field name on the parent, if any
	// Children must appear in order among the node's named children.
	Children []*Node
	// Exact requires Children to be the complete, contiguous list of
	// named children.
	Exact   bool
	Capture string
}

// N starts a node pattern of the given kind.
func N(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// As sets the capture name.
func (n *Node) As(capture string) *Node {
	n.Capture = capture
	return n
}

// In sets the field the node must occupy on its parent.
func (n *Node) In(field string) *Node {
	n.Field = field
	return n
}

// Only marks the children list as exact.
func (n *Node) Only() *Node {
	n.Exact = true
	return n
}

// Predicate constrains the text of a capture.
type Predicate struct {
	Op      string // "eq?" or "match?"
	Capture string
	Arg     string
}

// Eq requires the capture's text to equal literal.
func Eq(capture, literal string) Predicate {
	return Predicate{Op: "eq?", Capture: capture, Arg: literal}
}

// OneOf requires the capture's text to equal one of literals. It renders
// as a fully anchored regexp of quoted alternatives.
func OneOf(capture string, literals ...string) Predicate {
	alts := make([]string, len(literals))
	for i, l := range literals {
		alts[i] = regexp.QuoteMeta(l)
	}
	return Predicate{Op: "match?", Capture: capture, Arg: "^(?:" + strings.Join(alts, "|") + ")$"}
}

// Pattern is a root node plus the predicates evaluated against its captures.
type Pattern struct {
	Root       *Node
	Predicates []Predicate
}

// Captures returns every capture name in document order of the pattern.
func (p Pattern) Captures() []string {
	var out []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Capture != "" {
			out = append(out, n.Capture)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if p.Root != nil {
		walk(p.Root)
	}
	return out
}

// Validate checks symbol and capture names and that every predicate
// refers to a capture defined by the pattern.
func (p Pattern) Validate() error {
	if p.Root == nil {
		return fmt.Errorf("%w: no root node", ErrInvalidPattern)
	}
	seen := make(map[string]bool)
	var check func(n *Node, path string) error
	check = func(n *Node, path string) error {
		if n.Kind != Any && !symbolRe.MatchString(n.Kind) {
			return fmt.Errorf("%w: bad node kind %q at %s", ErrInvalidPattern, n.Kind, path)
		}
		if n.Field != "" && !symbolRe.MatchString(n.Field) {
			return fmt.Errorf("%w: bad field %q at %s", ErrInvalidPattern, n.Field, path)
		}
		if n.Capture != "" {
			if !captureRe.MatchString(n.Capture) {
				return fmt.Errorf("%w: bad capture %q at %s", ErrInvalidPattern, n.Capture, path)
			}
			if seen[n.Capture] {
				return fmt.Errorf("%w: duplicate capture @%s", ErrInvalidPattern, n.Capture)
			}
			seen[n.Capture] = true
		}
		for i, c := range n.Children {
			if c == nil {
				return fmt.Errorf("%w: nil child %d at %s", ErrInvalidPattern, i, path)
			}
			if err := check(c, fmt.Sprintf("%s/%d", path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(p.Root, p.Root.Kind); err != nil {
		return err
	}
	for _, pr := range p.Predicates {
		if pr.Op != "eq?" && pr.Op != "match?" {
			return fmt.Errorf("%w: unknown predicate #%s", ErrInvalidPattern, pr.Op)
		}
		if !seen[pr.Capture] {
			return fmt.Errorf("%w: predicate #%s refers to undefined @%s", ErrInvalidPattern, pr.Op, pr.Capture)
		}
		if pr.Op == "match?" {
			if _, err := regexp.Compile(pr.Arg); err != nil {
				return fmt.Errorf("%w: predicate on @%s: %v", ErrInvalidPattern, pr.Capture, err)
			}
		}
	}
	return nil
}

// Render returns the query source for p.
func (p Pattern) Render() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("(\n")
	renderNode(&b, p.Root, 1)
	for _, pr := range p.Predicates {
		fmt.Fprintf(&b, "\n\t(#%s @%s %s)", pr.Op, pr.Capture, Literal(pr.Arg))
	}
	b.WriteString("\n)\n")
	return b.String(), nil
}

// String renders p, or describes why it cannot be rendered.
func (p Pattern) String() string {
	s, err := p.Render()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}

func renderNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("\t", depth)
	b.WriteString(indent)
	if n.Field != "" {
		b.WriteString(n.Field + ": ")
	}
	b.WriteString("(" + n.Kind)
	for i, c := range n.Children {
		b.WriteByte('\n')
		if n.Exact && i == 0 {
			b.WriteString(indent + "\t.\n")
		}
		renderNode(b, c, depth+1)
		if n.Exact {
			b.WriteString("\n" + indent + "\t.")
		}
	}
	b.WriteByte(')')
	if n.Capture != "" {
		b.WriteString(" @" + n.Capture)
	}
}

// Literal quotes s as a query string literal.
func Literal(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
