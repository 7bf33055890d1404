package linter

import (
	"context"
	"fmt"

	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

// Diagnostic is one finding; Line is zero-based.
type Diagnostic struct {
	Message string
	Line    uint32
	Span    syntax.Span
}

// String renders the finding with a one-based line number.
func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line+1, d.Message)
}

// Lint checks every list the request selects in doc.
// Currently reports elements repeated within one list.
func Lint(ctx context.Context, c *selector.Compiler, doc *syntax.Document, req selector.Request) ([]Diagnostic, error) {
	compiled, err := c.Compile(req)
	if err != nil {
		return nil, err
	}
	matches := compiled.Match(ctx, doc)
	defer matches.Close()

	var diags []Diagnostic
	for {
		m, ok := matches.Next()
		if !ok {
			break
		}
		// Rule 1: duplicate element
		// [ a b a ] binds a twice; the second occurrence is reported.
		seen := make(map[string]*sitter.Node, len(m.Elements))
		for _, el := range m.Elements {
			text := doc.Text(el)
			first, dup := seen[text]
			if !dup {
				seen[text] = el
				continue
			}
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("duplicate element %s in %s (first on line %d)",
					text, req.Path, first.StartPoint().Row+1),
				Line: el.StartPoint().Row,
				Span: syntax.SpanOf(el),
			})
		}
	}
	return diags, matches.Err()
}
