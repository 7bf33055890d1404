// Package edit applies text splices derived from selected values: adding
// and removing list elements without disturbing the surrounding source.
package edit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/agentic-research/nixsel/internal/syntax"
)

// ErrOverlap is returned when two splices touch the same bytes.
var ErrOverlap = errors.New("overlapping edits")

// Splice replaces the bytes in Span with Text. A zero-width span inserts.
type Splice struct {
	Span syntax.Span
	Text []byte
}

func (s Splice) deletion() bool { return len(s.Text) == 0 && s.Span.Start < s.Span.End }

// Apply returns src with every splice applied. Splices refer to offsets
// in the original src; overlapping deletions are merged, any other
// overlap is an error.
func Apply(src []byte, splices []Splice) ([]byte, error) {
	ordered := append([]Splice(nil), splices...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Span.Start != ordered[j].Span.Start {
			return ordered[i].Span.Start < ordered[j].Span.Start
		}
		return ordered[i].Span.End < ordered[j].Span.End
	})

	var merged []Splice
	for _, s := range ordered {
		if s.Span.Start > s.Span.End || int(s.Span.End) > len(src) {
			return nil, fmt.Errorf("invalid byte range %s for source of length %d", s.Span, len(src))
		}
		if n := len(merged); n > 0 {
			prev := &merged[n-1]
			if s.Span.Start < prev.Span.End {
				if !prev.deletion() || !s.deletion() {
					return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, prev.Span, s.Span)
				}
				if s.Span.End > prev.Span.End {
					prev.Span.End = s.Span.End
				}
				continue
			}
		}
		merged = append(merged, s)
	}

	// result = prefix + text + ... + suffix
	out := make([]byte, 0, len(src))
	cursor := uint32(0)
	for _, s := range merged {
		out = append(out, src[cursor:s.Span.Start]...)
		out = append(out, s.Text...)
		cursor = s.Span.End
	}
	out = append(out, src[cursor:]...)
	return out, nil
}

// ApplyChecked applies splices and re-parses the result, rejecting edits
// that leave the document syntactically invalid.
func ApplyChecked(ctx context.Context, doc *syntax.Document, splices []Splice) ([]byte, error) {
	out, err := Apply(doc.Source, splices)
	if err != nil {
		return nil, err
	}
	check, err := syntax.Parse(ctx, doc.Path, out)
	if err != nil {
		return nil, fmt.Errorf("edited document: %w", err)
	}
	check.Close()
	return out, nil
}
