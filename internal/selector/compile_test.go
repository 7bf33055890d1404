package selector

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/syntax"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_PatternShape(t *testing.T) {
	compiled, err := newCompiler(t).Compile(Request{
		Path:   attrpath.MustNew("maintainers"),
		Shape:  ListElements,
		Frames: []scope.Frame{scope.With("lib.maintainers"), scope.Let("x")},
	})
	require.NoError(t, err)

	src := strings.Join(strings.Fields(compiled.Source()), " ")
	assert.Contains(t, src, "(binding attrpath: (attrpath . (_) @attr.0 .) expression: (with_expression")
	assert.Contains(t, src, "environment: (_) @context.0 body: (let_expression")
	assert.Contains(t, src, "body: (list_expression) @collection) @frame.1) @frame.0) @binding")
	assert.Contains(t, src, `(#eq? @context.0 "lib.maintainers")`)
	assert.Contains(t, src, `(#eq? @name.1.0 "x")`)
	assert.Contains(t, src, `(#match? @attr.0 "^(?:maintainers|\"maintainers\")$")`)

	assert.Equal(t, 2, compiled.Chain().Len())
	assert.Equal(t, ListElements, compiled.Shape())
	assert.Equal(t, "maintainers", compiled.Path().String())
}

func TestCompile_FoldIsInnermostFirst(t *testing.T) {
	compiled, err := newCompiler(t).Compile(Request{
		Path:   attrpath.MustNew("x"),
		Shape:  ListElements,
		Frames: []scope.Frame{scope.Let(), scope.With(""), scope.With("")},
	})
	require.NoError(t, err)

	src := compiled.Source()
	let := strings.Index(src, "let_expression")
	with0 := strings.Index(src, "with_expression")
	list := strings.Index(src, "list_expression")
	require.True(t, let >= 0 && with0 >= 0 && list >= 0)
	assert.Less(t, let, with0, "outermost frame is rendered first")
	assert.Less(t, with0, list)
	assert.Equal(t, 2, strings.Count(src, "with_expression"))
}

func TestCompile_CacheReusesQuery(t *testing.T) {
	c := newCompiler(t)
	req := Request{Path: attrpath.MustNew("x"), Shape: ListElements, Frames: []scope.Frame{scope.With("")}}

	a, err := c.Compile(req)
	require.NoError(t, err)
	b, err := c.Compile(req)
	require.NoError(t, err)
	assert.Same(t, a.query, b.query)

	anchored := req
	anchored.Frames = []scope.Frame{scope.With("").Anchored(syntax.Span{Start: 1, End: 9})}
	d, err := c.Compile(anchored)
	require.NoError(t, err)
	assert.Same(t, a.query, d.query, "anchors do not change the pattern")
	require.NotNil(t, d.Chain().Frame(0).Span)
	assert.Nil(t, a.Chain().Frame(0).Span, "cached entry keeps its own chain")
}

func TestCompile_NoCache(t *testing.T) {
	c, err := NewCompiler(CompilerConfig{})
	require.NoError(t, err)
	req := Request{Path: attrpath.MustNew("x"), Shape: ListElements}
	a, err := c.Compile(req)
	require.NoError(t, err)
	b, err := c.Compile(req)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, a.Source(), b.Source())
}

func TestCompile_RejectedPatternIsLoud(t *testing.T) {
	var logs bytes.Buffer
	c, err := NewCompiler(CompilerConfig{
		Language: golang.GetLanguage(), // has no binding nodes
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	_, err = c.Compile(Request{
		Path:   attrpath.MustNew("a.b"),
		Shape:  ListElements,
		Frames: []scope.Frame{scope.With("lib")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatternCompile)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, `"a.b"`, ce.Path)
	assert.Equal(t, "[with lib]", ce.Frames)
	assert.Contains(t, ce.Pattern, "(binding")
	assert.Contains(t, logs.String(), "pattern rejected")
	assert.Contains(t, logs.String(), "binding")
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("list")
	require.NoError(t, err)
	assert.Equal(t, ListElements, s)

	s, err = ParseShape("attrset")
	require.NoError(t, err)
	assert.Equal(t, AttrsetEntry, s)

	_, err = ParseShape("string")
	assert.ErrorIs(t, err, ErrUnsupportedValueShape)
}

func TestDiscover(t *testing.T) {
	doc := parse(t, `{
  a = { x = with lib.maintainers; let p = 1; in [ one ]; };
  b = { x = [ two ]; };
}`)
	c := newCompiler(t)
	found, err := c.Discover(context.Background(), doc, attrpath.MustNew("x"))
	require.NoError(t, err)
	require.Len(t, found, 2)

	require.Len(t, found[0].Frames, 2)
	assert.Equal(t, scope.Dynamic, found[0].Frames[0].Kind)
	assert.Equal(t, "lib.maintainers", found[0].Frames[0].Env)
	assert.Equal(t, scope.Lexical, found[0].Frames[1].Kind)
	assert.Equal(t, []string{"p"}, found[0].Frames[1].Names)
	assert.Equal(t, "list_expression", found[0].Value)

	assert.Empty(t, found[1].Frames)
	assert.Equal(t, "list_expression", found[1].Value)

	// discovered frames select exactly their own binding
	values, _ := collect(t, c, doc, Request{Path: attrpath.MustNew("x"), Shape: ListElements, Frames: found[0].Frames})
	assert.Equal(t, []string{"one"}, values)
}

func TestSelect_AnchorsPinFrames(t *testing.T) {
	doc := parse(t, `{ a = { x = with l; [ 1 ]; }; b = { x = with l; [ 2 ]; }; }`)
	c := newCompiler(t)
	req := Request{Path: attrpath.MustNew("x"), Shape: ListElements, Frames: []scope.Frame{scope.With("l")}}

	vals, err := c.Select(context.Background(), doc, req)
	require.NoError(t, err)
	var all []ValueWithContext
	for v := range vals.All() {
		all = append(all, v)
	}
	require.Len(t, all, 2)

	compiled, err := c.Compile(req)
	require.NoError(t, err)
	pinned := req
	pinned.Frames = all[1].Anchors(compiled.Chain())

	values, _ := collect(t, c, doc, pinned)
	assert.Equal(t, []string{"2"}, values)
}

func TestDiscovered_String(t *testing.T) {
	d := Discovered{
		Binding: syntax.Span{Start: 10, End: 50},
		Frames: []scope.Frame{
			scope.With("lib").Anchored(syntax.Span{Start: 14, End: 49}),
			scope.Let("x").Anchored(syntax.Span{Start: 20, End: 48}),
		},
		Value:     "list_expression",
		ValueSpan: syntax.Span{Start: 30, End: 48},
	}
	assert.Equal(t, "[10:50] with lib@[14:49] > let x@[20:48] -> list_expression [30:48]", d.String())

	bare := Discovered{Binding: syntax.Span{Start: 0, End: 9}, Value: "list_expression", ValueSpan: syntax.Span{Start: 4, End: 8}}
	assert.Equal(t, "[0:9] (no frames) -> list_expression [4:8]", bare.String())
}
