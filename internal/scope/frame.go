// Package scope describes the scope-introducing constructs that can wrap
// a bound value: dynamic environments (with) and lexical binding groups
// (let).
//
// Frames are structural only. Nothing here resolves a name to its
// binding; a Chain records which constructs a selection must pass through
// and in what order, and documents the lookup order a resolver would use.
package scope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/syntax"
)

// ErrInvalidScopeOrdering is returned by Describe for malformed frame
// sequences.
var ErrInvalidScopeOrdering = errors.New("invalid scope ordering")

// Kind tags a frame.
type Kind uint8

const (
	// KindInvalid is the zero Kind; Describe rejects it.
	KindInvalid Kind = iota
	// Dynamic is `with ENV; BODY`: every attribute of ENV is visible in
	// BODY at the lowest precedence.
	Dynamic
	// Lexical is `let BINDINGS in BODY`: explicit bindings that shadow
	// any enclosing dynamic environment.
	Lexical
)

// String returns the keyword that introduces the frame.
func (k Kind) String() string {
	switch k {
	case Dynamic:
		return "with"
	case Lexical:
		return "let"
	default:
		return "invalid"
	}
}

// ParseKind accepts "with"/"dynamic" and "let"/"lexical".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "with", "dynamic":
		return Dynamic, nil
	case "let", "lexical":
		return Lexical, nil
	default:
		return KindInvalid, fmt.Errorf("%w: unknown frame kind %q", ErrInvalidScopeOrdering, s)
	}
}

// Frame is one scope construct a value must be nested under.
type Frame struct {
	Kind Kind
	// Env, for Dynamic frames, is the exact source text the environment
	// expression must have. Empty matches any environment.
	Env string
	// Names, for Lexical frames, are binding names the group must
	// declare, in declaration order. Empty matches any group.
	Names []string
	// Span anchors the frame to a concrete node of a document.
	Span *syntax.Span
}

// With returns a dynamic frame over env ("" for any).
func With(env string) Frame { return Frame{Kind: Dynamic, Env: env} }

// Let returns a lexical frame declaring names (none for any).
func Let(names ...string) Frame { return Frame{Kind: Lexical, Names: names} }

// Anchored returns a copy of f pinned to span.
func (f Frame) Anchored(span syntax.Span) Frame {
	f.Span = &span
	return f
}

func (f Frame) String() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	switch {
	case f.Kind == Dynamic && f.Env != "":
		b.WriteString(" " + f.Env)
	case f.Kind == Lexical && len(f.Names) > 0:
		b.WriteString(" " + strings.Join(f.Names, ","))
	}
	if f.Span != nil {
		b.WriteString("@" + f.Span.String())
	}
	return b.String()
}

func (f Frame) validate() error {
	switch f.Kind {
	case Dynamic:
		if len(f.Names) > 0 {
			return errors.New("with frame cannot declare names")
		}
	case Lexical:
		if f.Env != "" {
			return errors.New("let frame cannot have an environment")
		}
		for _, n := range f.Names {
			if !attrpath.IsIdentifier(n) {
				return fmt.Errorf("binding name %q is not an identifier", n)
			}
		}
	default:
		return fmt.Errorf("unknown frame kind %d", f.Kind)
	}
	if f.Span != nil && f.Span.Start >= f.Span.End {
		return fmt.Errorf("empty anchor %s", f.Span)
	}
	return nil
}

// Chain is a validated frame sequence, outermost first.
type Chain struct {
	frames []Frame
}

// Describe validates frames and returns them as a Chain. Frames must be
// listed outermost to innermost; anchored frames must each lie strictly
// inside the previous anchored frame.
func Describe(frames []Frame) (Chain, error) {
	var prev *syntax.Span
	out := make([]Frame, len(frames))
	for i, f := range frames {
		if err := f.validate(); err != nil {
			return Chain{}, fmt.Errorf("%w: frame %d (%s): %v", ErrInvalidScopeOrdering, i, f.Kind, err)
		}
		if f.Span != nil {
			if prev != nil && !prev.StrictlyContains(*f.Span) {
				return Chain{}, fmt.Errorf("%w: frame %d %s is not inside %s",
					ErrInvalidScopeOrdering, i, f.Span, prev)
			}
			prev = f.Span
		}
		f.Names = append([]string(nil), f.Names...)
		out[i] = f
	}
	return Chain{frames: out}, nil
}

// Len returns the number of frames.
func (c Chain) Len() int { return len(c.frames) }

// Frames returns a copy of the frames, outermost first.
func (c Chain) Frames() []Frame { return append([]Frame(nil), c.frames...) }

// Frame returns the i-th frame.
func (c Chain) Frame(i int) Frame { return c.frames[i] }

// Innermost returns the most specific frame, if any.
func (c Chain) Innermost() (Frame, bool) {
	if len(c.frames) == 0 {
		return Frame{}, false
	}
	return c.frames[len(c.frames)-1], true
}

// ResolutionOrder returns frame indices in the order a name lookup would
// consult them: lexical groups from innermost outwards, then dynamic
// environments from innermost outwards.
func (c Chain) ResolutionOrder() []int {
	order := make([]int, 0, len(c.frames))
	for _, want := range []Kind{Lexical, Dynamic} {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if c.frames[i].Kind == want {
				order = append(order, i)
			}
		}
	}
	return order
}

// Key is a stable identity for the chain, usable in cache keys.
func (c Chain) Key() string {
	var b strings.Builder
	for i, f := range c.frames {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(f.Kind.String())
		switch f.Kind {
		case Dynamic:
			b.WriteString(strconv.Quote(f.Env))
		case Lexical:
			b.WriteString(strconv.Quote(strings.Join(f.Names, ",")))
		}
		// anchors only filter matches, they do not change the pattern
	}
	return b.String()
}

func (c Chain) String() string {
	parts := make([]string, len(c.frames))
	for i, f := range c.frames {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, " > ") + "]"
}

// ParseFrame reads the textual frame form used on command lines:
// "with", "with=ENV", "let" and "let=a,b". Kind aliases accepted by
// ParseKind work too.
func ParseFrame(s string) (Frame, error) {
	head, arg, hasArg := strings.Cut(s, "=")
	kind, err := ParseKind(head)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Kind: kind}
	if !hasArg {
		return f, nil
	}
	switch kind {
	case Dynamic:
		f.Env = strings.TrimSpace(arg)
	case Lexical:
		for _, n := range strings.Split(arg, ",") {
			if n = strings.TrimSpace(n); n != "" {
				f.Names = append(f.Names, n)
			}
		}
	}
	if err := f.validate(); err != nil {
		return Frame{}, fmt.Errorf("%w: %q: %v", ErrInvalidScopeOrdering, s, err)
	}
	return f, nil
}

// ParseFrames parses each string with ParseFrame, outermost first.
func ParseFrames(ss []string) ([]Frame, error) {
	frames := make([]Frame, 0, len(ss))
	for _, s := range ss {
		f, err := ParseFrame(s)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}
