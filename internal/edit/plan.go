package edit

import (
	"context"
	"strings"

	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/syntax"
)

// Edits are element changes applied to every collection a selection
// matches. Remove compares against the element's source text.
type Edits struct {
	Add    []string
	Remove []string
}

// Empty reports whether e changes nothing.
func (e Edits) Empty() bool { return len(e.Add) == 0 && len(e.Remove) == 0 }

// Plan computes the splices for e over every match of the compiled
// selections in doc. A list selected by more than one of them is edited
// once. Adds go after existing elements, in the order given.
func Plan(ctx context.Context, doc *syntax.Document, e Edits, compiled ...*selector.Compiled) ([]Splice, error) {
	remove := make(map[string]bool, len(e.Remove))
	for _, r := range e.Remove {
		remove[strings.TrimSpace(r)] = true
	}

	var splices []Splice
	if len(remove) > 0 {
		var doomed []selector.ValueWithContext
		for _, c := range compiled {
			vals := c.Values(ctx, doc)
			for v := range vals.All() {
				if remove[v.Text()] {
					doomed = append(doomed, v)
				}
			}
			if err := vals.Err(); err != nil {
				return nil, err
			}
		}
		splices = RemoveElements(doomed...)
	}
	if len(e.Add) == 0 {
		return splices, nil
	}

	edited := make(map[uint32]bool)
	for _, c := range compiled {
		matches := c.Match(ctx, doc)
		for {
			m, ok := matches.Next()
			if !ok {
				break
			}
			if edited[m.Collection.StartByte()] {
				continue
			}
			edited[m.Collection.StartByte()] = true
			for _, text := range e.Add {
				s, err := AddElement(doc, m.Collection, strings.TrimSpace(text))
				if err != nil {
					matches.Close()
					return nil, err
				}
				splices = append(splices, s)
			}
		}
		matches.Close()
		if err := matches.Err(); err != nil {
			return nil, err
		}
	}
	return splices, nil
}
