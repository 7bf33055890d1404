package scope

import (
	"testing"

	"github.com/agentic-research/nixsel/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Empty(t *testing.T) {
	c, err := Describe(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Innermost()
	assert.False(t, ok)
}

func TestDescribe_KeepsOrder(t *testing.T) {
	c, err := Describe([]Frame{With("lib"), Let("x"), With("pkgs")})
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	inner, ok := c.Innermost()
	require.True(t, ok)
	assert.Equal(t, "pkgs", inner.Env)
	assert.Equal(t, Lexical, c.Frame(1).Kind)
}

func TestDescribe_RejectsMixedFields(t *testing.T) {
	_, err := Describe([]Frame{{Kind: Dynamic, Names: []string{"x"}}})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)

	_, err = Describe([]Frame{{Kind: Lexical, Env: "lib"}})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)

	_, err = Describe([]Frame{{}})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)

	_, err = Describe([]Frame{Let("not an ident")})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)
}

func TestDescribe_AnchorsMustNest(t *testing.T) {
	outer := With("").Anchored(syntax.Span{Start: 0, End: 50})
	inner := Let().Anchored(syntax.Span{Start: 10, End: 40})

	_, err := Describe([]Frame{outer, inner})
	require.NoError(t, err)

	_, err = Describe([]Frame{inner, outer})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)

	same := Let().Anchored(syntax.Span{Start: 0, End: 50})
	_, err = Describe([]Frame{outer, same})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering, "equal spans are not strictly nested")

	empty := With("").Anchored(syntax.Span{Start: 5, End: 5})
	_, err = Describe([]Frame{empty})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)
}

func TestDescribe_UnanchoredFramesBetweenAnchors(t *testing.T) {
	outer := With("").Anchored(syntax.Span{Start: 0, End: 50})
	inner := With("").Anchored(syntax.Span{Start: 10, End: 40})
	_, err := Describe([]Frame{outer, Let(), inner})
	assert.NoError(t, err)
}

func TestDescribe_CopiesNames(t *testing.T) {
	names := []string{"a"}
	c, err := Describe([]Frame{Let(names...)})
	require.NoError(t, err)
	names[0] = "b"
	assert.Equal(t, []string{"a"}, c.Frame(0).Names)
}

func TestChain_ResolutionOrder(t *testing.T) {
	c, err := Describe([]Frame{With("a"), Let(), With("b"), Let()})
	require.NoError(t, err)
	// lexical innermost-first, then dynamic innermost-first
	assert.Equal(t, []int{3, 1, 2, 0}, c.ResolutionOrder())
}

func TestChain_Key(t *testing.T) {
	a, _ := Describe([]Frame{With("lib"), Let("x", "y")})
	b, _ := Describe([]Frame{With("lib"), Let("x", "y").Anchored(syntax.Span{Start: 1, End: 2})})
	c, _ := Describe([]Frame{With("lib"), Let("x")})
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("with")
	require.NoError(t, err)
	assert.Equal(t, Dynamic, k)

	k, err = ParseKind("Lexical")
	require.NoError(t, err)
	assert.Equal(t, Lexical, k)

	_, err = ParseKind("rec")
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)
}

func TestFrame_String(t *testing.T) {
	assert.Equal(t, "with lib.maintainers", With("lib.maintainers").String())
	assert.Equal(t, "let a,b", Let("a", "b").String())
	assert.Equal(t, "with@[1:4]", With("").Anchored(syntax.Span{Start: 1, End: 4}).String())
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame("with")
	require.NoError(t, err)
	assert.Equal(t, With(""), f)

	f, err = ParseFrame("with=lib.maintainers")
	require.NoError(t, err)
	assert.Equal(t, "lib.maintainers", f.Env)

	f, err = ParseFrame("let=a, b")
	require.NoError(t, err)
	assert.Equal(t, Lexical, f.Kind)
	assert.Equal(t, []string{"a", "b"}, f.Names)

	f, err = ParseFrame("lexical")
	require.NoError(t, err)
	assert.Empty(t, f.Names)
}

func TestParseFrame_Invalid(t *testing.T) {
	for _, s := range []string{"", "rec", "let=a.b", "let=in"} {
		_, err := ParseFrame(s)
		assert.ErrorIs(t, err, ErrInvalidScopeOrdering, s)
	}
}

func TestParseFrames_Order(t *testing.T) {
	frames, err := ParseFrames([]string{"with=lib", "let=x"})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, Dynamic, frames[0].Kind)
	assert.Equal(t, Lexical, frames[1].Kind)

	_, err = ParseFrames([]string{"with", "nope"})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)
}

func TestKindInvalid_Rejected(t *testing.T) {
	assert.Equal(t, "invalid", KindInvalid.String())
	_, err := Describe([]Frame{{}})
	assert.ErrorIs(t, err, ErrInvalidScopeOrdering)
}
