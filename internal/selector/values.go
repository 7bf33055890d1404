package selector

import (
	"context"
	"iter"

	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

// ValueWithContext is one located value. It borrows the document it came
// from and is only valid while that document is open.
type ValueWithContext struct {
	// Value is the element node.
	Value *sitter.Node
	// Index is the element's position in its collection.
	Index int
	// Collection holds Value.
	Collection *sitter.Node
	// Binding is the binding the collection is bound by.
	Binding *sitter.Node
	// Context is the enclosing-scope node: the innermost frame's
	// environment expression (with) or binding group (let). Nil when the
	// request had no frames.
	Context *sitter.Node
	// Frames are the frame nodes passed through, outermost first. The
	// last one contains Value.
	Frames []FrameMatch
	// Kinds are the kinds of Frames.
	Kinds []scope.Kind

	doc *syntax.Document
}

// Document returns the document the value borrows.
func (v ValueWithContext) Document() *syntax.Document { return v.doc }

// Text returns the value's source text.
func (v ValueWithContext) Text() string { return v.doc.Text(v.Value) }

// Span returns the value's byte range.
func (v ValueWithContext) Span() syntax.Span { return syntax.SpanOf(v.Value) }

// ContextText returns the enclosing-scope text, if there is a context.
func (v ValueWithContext) ContextText() (string, bool) {
	if v.Context == nil {
		return "", false
	}
	return v.doc.Text(v.Context), true
}

// ContextSpan returns the enclosing-scope byte range, if there is a context.
func (v ValueWithContext) ContextSpan() (syntax.Span, bool) {
	if v.Context == nil {
		return syntax.Span{}, false
	}
	return syntax.SpanOf(v.Context), true
}

// Frame returns the innermost frame node, nil without frames.
func (v ValueWithContext) Frame() *sitter.Node {
	if len(v.Frames) == 0 {
		return nil
	}
	return v.Frames[len(v.Frames)-1].Node
}

// Anchors returns the frames of the value pinned to their nodes, suitable
// for a follow-up request that must stay under the same constructs.
func (v ValueWithContext) Anchors(c scope.Chain) []scope.Frame {
	out := c.Frames()
	for i := range out {
		if i < len(v.Frames) && v.Frames[i].Node != nil {
			out[i] = out[i].Anchored(syntax.SpanOf(v.Frames[i].Node))
		}
	}
	return out
}

// Record is the plain-data view of a value used by renderers and stores.
type Record struct {
	Path        string       `json:"path"`
	Index       int          `json:"index"`
	Value       string       `json:"value"`
	ValueSpan   syntax.Span  `json:"value_span"`
	Context     *string      `json:"context"`
	ContextSpan *syntax.Span `json:"context_span"`
	Frames      []string     `json:"frames"`
}

// Record copies the value's texts and ranges out of the document.
func (v ValueWithContext) Record(path string) Record {
	r := Record{
		Path:      path,
		Index:     v.Index,
		Value:     v.Text(),
		ValueSpan: v.Span(),
		Frames:    make([]string, len(v.Kinds)),
	}
	if text, ok := v.ContextText(); ok {
		span, _ := v.ContextSpan()
		r.Context = &text
		r.ContextSpan = &span
	}
	for i, k := range v.Kinds {
		r.Frames[i] = k.String()
	}
	return r
}

// Values enumerates ValueWithContext lazily in source order. Matches
// arrive ordered by binding; when a binding sits inside another selected
// list, the elements of both are merged by start byte. Only matches with
// elements still pending are held, plus one match of lookahead.
type Values struct {
	matches *Matches
	kinds   []scope.Kind
	open    []*openMatch // in arrival order
	pending *MatchResult
	done    bool
	closed  bool
}

type openMatch struct {
	m    *MatchResult
	next int
}

func (o *openMatch) head() uint32 { return o.m.Elements[o.next].StartByte() }

// Values executes c against doc. Each call starts a fresh enumeration.
func (c *Compiled) Values(ctx context.Context, doc *syntax.Document) *Values {
	frames := c.chain.Frames()
	kinds := make([]scope.Kind, len(frames))
	for i, f := range frames {
		kinds[i] = f.Kind
	}
	return &Values{matches: c.Match(ctx, doc), kinds: kinds}
}

func (v *Values) peek() *MatchResult {
	if v.pending == nil && !v.done {
		if m, ok := v.matches.Next(); ok {
			v.pending = m
		} else {
			v.done = true
		}
	}
	return v.pending
}

// Next returns the next value in document order.
func (v *Values) Next() (ValueWithContext, bool) {
	if v.closed {
		return ValueWithContext{}, false
	}
	for {
		best := -1
		for i, o := range v.open {
			if best < 0 || o.head() < v.open[best].head() {
				best = i
			}
		}
		// a pending match can only hold elements after its binding starts
		if p := v.peek(); p != nil && (best < 0 || p.Binding.StartByte() < v.open[best].head()) {
			v.pending = nil
			if len(p.Elements) > 0 {
				v.open = append(v.open, &openMatch{m: p})
			}
			continue
		}
		if best < 0 {
			return ValueWithContext{}, false
		}

		o := v.open[best]
		i := o.next
		o.next++
		if o.next >= len(o.m.Elements) {
			v.open = append(v.open[:best], v.open[best+1:]...)
		}
		m := o.m
		return ValueWithContext{
			Value:      m.Elements[i],
			Index:      i,
			Collection: m.Collection,
			Binding:    m.Binding,
			Context:    m.Scope(),
			Frames:     m.Frames,
			Kinds:      v.kinds,
			doc:        v.matches.doc,
		}, true
	}
}

// Err reports why enumeration stopped early, if it did.
func (v *Values) Err() error { return v.matches.Err() }

// Close stops the enumeration.
func (v *Values) Close() {
	v.closed = true
	v.open = nil
	v.pending = nil
	v.matches.Close()
}

// All yields the remaining values. Breaking out of the loop closes the
// enumeration; check Err afterwards for early termination.
func (v *Values) All() iter.Seq[ValueWithContext] {
	return func(yield func(ValueWithContext) bool) {
		defer v.Close()
		for {
			val, ok := v.Next()
			if !ok || !yield(val) {
				return
			}
		}
	}
}

// Select compiles req and enumerates its values in doc.
func (c *Compiler) Select(ctx context.Context, doc *syntax.Document, req Request) (*Values, error) {
	compiled, err := c.Compile(req)
	if err != nil {
		return nil, err
	}
	return compiled.Values(ctx, doc), nil
}
