package edit

import (
	"errors"
	"sort"

	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrNotAList is returned when an element edit targets a non-list node.
var ErrNotAList = errors.New("not a list expression")

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// RemoveElement excises v together with the whitespace that separated it
// from its predecessor. The first element takes its trailing whitespace
// instead, so the remaining elements keep their layout.
func RemoveElement(v selector.ValueWithContext) Splice {
	return removeRun(v, v)
}

// RemoveElements excises every value. Consecutive elements of one list
// are removed as a single run so the whitespace around the run is handled
// once.
func RemoveElements(vals ...selector.ValueWithContext) []Splice {
	sorted := append([]selector.ValueWithContext(nil), vals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Span().Start < sorted[j].Span().Start })

	var out []Splice
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) {
			next := sorted[j+1]
			if next.Span() == sorted[j].Span() {
				// same element listed twice
				sorted = append(sorted[:j+1], sorted[j+2:]...)
				continue
			}
			if !sameList(sorted[j], next) || next.Index != sorted[j].Index+1 {
				break
			}
			j++
		}
		out = append(out, removeRun(sorted[i], sorted[j]))
		i = j + 1
	}
	return out
}

func sameList(a, b selector.ValueWithContext) bool {
	return a.Collection != nil && b.Collection != nil &&
		a.Collection.StartByte() == b.Collection.StartByte()
}

// removeRun excises first..last, which are consecutive elements of one list.
func removeRun(first, last selector.ValueWithContext) Splice {
	src := first.Document().Source
	start, end := first.Span().Start, last.Span().End

	lead := start
	for lead > 0 && isSpace(src[lead-1]) {
		lead--
	}
	if first.Index == 0 {
		trail := end
		for int(trail) < len(src) && isSpace(src[trail]) {
			trail++
		}
		if int(trail) < len(src) && src[trail] != ']' {
			return Splice{Span: syntax.Span{Start: start, End: trail}}
		}
	}
	return Splice{Span: syntax.Span{Start: lead, End: end}}
}

// AddElement inserts text as the last element of the list collection.
// The new element is separated from its predecessor the same way the
// last element is separated from the one before it.
func AddElement(doc *syntax.Document, collection *sitter.Node, text string) (Splice, error) {
	if collection == nil || collection.Type() != "list_expression" {
		return Splice{}, ErrNotAList
	}
	src := doc.Source

	var last *sitter.Node
	for i := int(collection.NamedChildCount()) - 1; i >= 0; i-- {
		if c := collection.NamedChild(i); !c.IsExtra() {
			last = c
			break
		}
	}

	if last == nil {
		// `[ ]` or `[]`: place the element after the opening bracket
		at := collection.StartByte() + 1
		ins := " " + text
		if at < uint32(len(src)) && src[at] == ']' {
			ins += " "
		}
		return Splice{Span: syntax.Span{Start: at, End: at}, Text: []byte(ins)}, nil
	}

	sep := " "
	lead := last.StartByte()
	for lead > 0 && isSpace(src[lead-1]) {
		lead--
	}
	if lead < last.StartByte() {
		sep = string(src[lead:last.StartByte()])
	}
	at := last.EndByte()
	return Splice{Span: syntax.Span{Start: at, End: at}, Text: []byte(sep + text)}, nil
}
