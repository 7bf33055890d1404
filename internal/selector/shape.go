package selector

import (
	"fmt"
	"strings"

	"github.com/agentic-research/nixsel/internal/pattern"
	sitter "github.com/smacker/go-tree-sitter"
)

// ValueShape selects what kind of value a request looks for.
type ValueShape uint8

const (
	// ListElements yields each element of a list literal.
	ListElements ValueShape = iota + 1
	// AttrsetEntry would yield each entry of an attribute set literal.
	// No pattern is defined for it yet.
	AttrsetEntry

	// anyExpression matches whatever a binding is bound to. Used by Discover.
	anyExpression
)

func (s ValueShape) String() string {
	switch s {
	case ListElements:
		return "list"
	case AttrsetEntry:
		return "attrset"
	case anyExpression:
		return "expression"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// ParseShape accepts "list" and "attrset" (and their long names).
func ParseShape(s string) (ValueShape, error) {
	switch strings.ToLower(s) {
	case "list", "list-elements", "listelements":
		return ListElements, nil
	case "attrset", "attrset-entry", "attrsetentry":
		return AttrsetEntry, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedValueShape, s)
	}
}

// template returns the innermost pattern node for the shape. The node
// captures the value container; elements are its named children.
func (s ValueShape) template() (*pattern.Node, error) {
	switch s {
	case ListElements:
		return pattern.N("list_expression").As(capCollection), nil
	case anyExpression:
		return pattern.N(pattern.Any).As(capCollection), nil
	case AttrsetEntry:
		return nil, fmt.Errorf("%w: %s values have no pattern yet", ErrUnsupportedValueShape, s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValueShape, s)
	}
}

// elements lists the values held by a collection node in source order.
// Comments are extras and never elements.
func (s ValueShape) elements(collection *sitter.Node) []*sitter.Node {
	if s != ListElements || collection == nil {
		return nil
	}
	n := int(collection.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := 0; i < n; i++ {
		child := collection.NamedChild(i)
		if child == nil || child.IsExtra() {
			continue
		}
		out = append(out, child)
	}
	return out
}
