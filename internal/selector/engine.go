package selector

import (
	"context"
	"strconv"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/nixsel/internal/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

// Role names carried by a MatchResult.
const (
	RoleBinding        = "binding"
	RoleCollection     = "collection"
	RoleFrame          = "frame"
	RoleEnclosingScope = "enclosing-scope"
	RoleElement        = "element"
)

// FrameMatch is one scope construct a match passed through.
type FrameMatch struct {
	Node    *sitter.Node // the with/let expression
	Context *sitter.Node // its environment expression or binding group
}

// MatchResult is one application of a pattern. A match whose collection
// holds no elements is still a match; it simply has no element role.
type MatchResult struct {
	Binding    *sitter.Node
	Collection *sitter.Node
	Frames     []FrameMatch // outermost first
	Elements   []*sitter.Node
}

// Role returns the nodes bound to a role name.
func (m *MatchResult) Role(name string) []*sitter.Node {
	switch name {
	case RoleBinding:
		return nonNil(m.Binding)
	case RoleCollection:
		return nonNil(m.Collection)
	case RoleFrame:
		if f, ok := m.innermost(); ok {
			return nonNil(f.Node)
		}
	case RoleEnclosingScope:
		if f, ok := m.innermost(); ok {
			return nonNil(f.Context)
		}
	case RoleElement:
		return m.Elements
	}
	return nil
}

// Scope returns the enclosing-scope node, nil outside any frame.
func (m *MatchResult) Scope() *sitter.Node {
	if f, ok := m.innermost(); ok {
		return f.Context
	}
	return nil
}

func (m *MatchResult) innermost() (FrameMatch, bool) {
	if len(m.Frames) == 0 {
		return FrameMatch{}, false
	}
	return m.Frames[len(m.Frames)-1], true
}

func nonNil(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	return []*sitter.Node{n}
}

// Matches is a pull cursor over the matches of a Compiled pattern in a
// document, in document order. It must not be shared between goroutines.
type Matches struct {
	ctx  context.Context
	c    *Compiled
	doc  *syntax.Document
	qc   *sitter.QueryCursor
	seen *roaring.Bitmap // collection start bytes already reported
	err  error
}

// Match executes c against doc. Nothing runs until the first Next.
func (c *Compiled) Match(ctx context.Context, doc *syntax.Document) *Matches {
	qc := sitter.NewQueryCursor()
	qc.Exec(c.query, doc.Root())
	return &Matches{ctx: ctx, c: c, doc: doc, qc: qc, seen: roaring.New()}
}

// Next returns the next match, or false when the document is exhausted,
// the context is done or the cursor was closed.
func (m *Matches) Next() (*MatchResult, bool) {
	for m.qc != nil {
		if err := m.ctx.Err(); err != nil {
			m.err = err
			m.Close()
			return nil, false
		}
		qm, ok := m.qc.NextMatch()
		if !ok {
			m.Close()
			return nil, false
		}
		qm = m.qc.FilterPredicates(qm, m.doc.Source)
		if len(qm.Captures) == 0 {
			continue // a predicate rejected the match
		}
		res := m.result(qm)
		if res == nil {
			continue
		}
		return res, true
	}
	return nil, false
}

// Err reports why iteration stopped early, if it did.
func (m *Matches) Err() error { return m.err }

// Close releases the query cursor. It is safe to call more than once.
func (m *Matches) Close() {
	if m.qc != nil {
		m.qc.Close()
		m.qc = nil
	}
}

func (m *Matches) result(qm *sitter.QueryMatch) *MatchResult {
	n := m.c.chain.Len()
	res := &MatchResult{Frames: make([]FrameMatch, n)}
	for _, capt := range qm.Captures {
		name := m.c.names[capt.Index]
		switch {
		case name == capBinding:
			res.Binding = capt.Node
		case name == capCollection:
			res.Collection = capt.Node
		default:
			if i, ok := frameIndex(name, capFrame, n); ok {
				res.Frames[i].Node = capt.Node
			} else if i, ok := frameIndex(name, capContext, n); ok {
				res.Frames[i].Context = capt.Node
			}
		}
	}
	if res.Binding == nil || res.Collection == nil {
		return nil
	}

	for i := 0; i < n; i++ {
		f := m.c.chain.Frame(i)
		if f.Span == nil {
			continue
		}
		if got := res.Frames[i].Node; got == nil || syntax.SpanOf(got) != *f.Span {
			return nil
		}
	}

	if !m.seen.CheckedAdd(res.Collection.StartByte()) {
		return nil
	}
	res.Elements = m.c.shape.elements(res.Collection)
	return res
}

func frameIndex(name, prefix string, n int) (int, bool) {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return 0, false
	}
	i, err := strconv.Atoi(name[len(prefix):])
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
