package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

// Discovered describes one binding of a path and the frames wrapping its
// expression.
type Discovered struct {
	Binding syntax.Span
	// Frames are anchored to their nodes, outermost first. Passing them
	// back in a Request selects under exactly this binding.
	Frames []scope.Frame
	// Value is the node type the frames end at, e.g. "list_expression".
	Value     string
	ValueSpan syntax.Span
}

// String renders the binding span, its frames and the value node:
//
//	[10:50] with lib@[14:49] -> list_expression [24:49]
func (d Discovered) String() string {
	chain := "(no frames)"
	if len(d.Frames) > 0 {
		parts := make([]string, len(d.Frames))
		for i, f := range d.Frames {
			parts[i] = f.String()
		}
		chain = strings.Join(parts, " > ")
	}
	return fmt.Sprintf("%s %s -> %s %s", d.Binding, chain, d.Value, d.ValueSpan)
}

// Discover reports the frame chain of every binding of path in doc.
func (c *Compiler) Discover(ctx context.Context, doc *syntax.Document, path attrpath.Path) ([]Discovered, error) {
	compiled, err := c.Compile(Request{Path: path, Shape: anyExpression})
	if err != nil {
		return nil, err
	}
	matches := compiled.Match(ctx, doc)
	defer matches.Close()

	var out []Discovered
	for {
		m, ok := matches.Next()
		if !ok {
			break
		}
		d := Discovered{Binding: syntax.SpanOf(m.Binding)}
		node := m.Collection
		for node != nil {
			f, body, ok := frameOf(doc, node)
			if !ok {
				break
			}
			d.Frames = append(d.Frames, f.Anchored(syntax.SpanOf(node)))
			node = body
		}
		if node != nil {
			d.Value = node.Type()
			d.ValueSpan = syntax.SpanOf(node)
		}
		out = append(out, d)
	}
	return out, matches.Err()
}

// frameOf describes node as a frame and returns its body.
func frameOf(doc *syntax.Document, node *sitter.Node) (scope.Frame, *sitter.Node, bool) {
	switch node.Type() {
	case "with_expression":
		return scope.With(doc.Text(node.ChildByFieldName("environment"))), node.ChildByFieldName("body"), true
	case "let_expression":
		var names []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "binding_set" {
				names = bindingNames(doc, child)
				break
			}
		}
		return scope.Let(names...), node.ChildByFieldName("body"), true
	default:
		return scope.Frame{}, nil, false
	}
}

// bindingNames lists single-identifier binding names of a binding set.
func bindingNames(doc *syntax.Document, set *sitter.Node) []string {
	var names []string
	for i := 0; i < int(set.NamedChildCount()); i++ {
		b := set.NamedChild(i)
		if b.Type() != "binding" {
			continue
		}
		ap := b.ChildByFieldName("attrpath")
		if ap == nil || ap.NamedChildCount() != 1 || ap.NamedChild(0).Type() != "identifier" {
			continue
		}
		names = append(names, doc.Text(ap.NamedChild(0)))
	}
	return names
}
