// Package selector finds values bound at an attribute path, reporting for
// each the scope frames it is nested under and its byte range in the
// source.
//
// A Request is compiled once into a tree-sitter query built from
// structured pattern nodes: the value-shape template innermost, each scope
// frame wrapped around it from the innermost frame outwards, and finally
// the binding whose attribute path equals the requested one. A Compiled
// request is immutable and may be executed against any number of
// documents, concurrently.
package selector

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/pattern"
	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/syntax"
	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
)

// Capture names used by compiled patterns.
const (
	capBinding    = "binding"
	capCollection = "collection"
	capAttr       = "attr."
	capFrame      = "frame."
	capContext    = "context."
	capName       = "name."
)

// Request addresses values: the attribute they are bound to, their shape,
// and the scope frames between the binding and the value.
type Request struct {
	Path   attrpath.Path
	Shape  ValueShape
	Frames []scope.Frame
}

func (r Request) String() string {
	return fmt.Sprintf("%s (%s) %s", r.Path, r.Shape, r.chainString())
}

func (r Request) chainString() string {
	c, err := scope.Describe(r.Frames)
	if err != nil {
		return fmt.Sprint(r.Frames)
	}
	return c.String()
}

// Compiled is a request bound to a query. It is safe for concurrent use.
type Compiled struct {
	path    attrpath.Path
	shape   ValueShape
	chain   scope.Chain
	pattern pattern.Pattern
	source  string
	query   *sitter.Query
	names   []string // capture name by index
}

// Path returns the attribute path the pattern selects.
func (c *Compiled) Path() attrpath.Path { return c.path }

// Shape returns the requested value shape.
func (c *Compiled) Shape() ValueShape { return c.shape }

// Chain returns the frame chain the pattern passes through.
func (c *Compiled) Chain() scope.Chain { return c.chain }

// Pattern returns the structured pattern.
func (c *Compiled) Pattern() pattern.Pattern { return c.pattern }

// Source returns the rendered query.
func (c *Compiled) Source() string { return c.source }

// CompilerConfig tunes a Compiler.
type CompilerConfig struct {
	// CacheSize bounds the number of compiled requests kept. Zero disables caching.
	CacheSize int
	Logger    *slog.Logger
	// Language defaults to the Nix grammar.
	Language *sitter.Language
}

// DefaultCompilerConfig returns the configuration used by the CLI.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{CacheSize: 128}
}

// Compiler turns requests into Compiled patterns, caching by request.
type Compiler struct {
	lang  *sitter.Language
	log   *slog.Logger
	cache *lru.Cache[string, *Compiled]
}

// NewCompiler creates a Compiler.
func NewCompiler(cfg CompilerConfig) (*Compiler, error) {
	c := &Compiler{lang: cfg.Language, log: cfg.Logger}
	if c.lang == nil {
		c.lang = syntax.Nix()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *Compiled](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create pattern cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Compile validates req and builds its pattern.
func (c *Compiler) Compile(req Request) (*Compiled, error) {
	if len(req.Path) == 0 {
		return nil, fmt.Errorf("%w: empty path", attrpath.ErrInvalidAttributePath)
	}
	chain, err := scope.Describe(req.Frames)
	if err != nil {
		return nil, err
	}
	inner, err := req.Shape.template()
	if err != nil {
		return nil, err
	}

	key := cacheKey(req.Path, req.Shape, chain)
	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok {
			c.log.Debug("pattern cache hit", slog.String("key", key))
			// anchors are not part of the key
			return hit.withChain(chain), nil
		}
	}

	pat := build(req.Path, inner, chain)
	src, err := pat.Render()
	if err != nil {
		return nil, c.fail(req.Path, chain, "", err)
	}
	q, err := sitter.NewQuery([]byte(src), c.lang)
	if err != nil {
		return nil, c.fail(req.Path, chain, src, err)
	}

	names := make([]string, q.CaptureCount())
	for i := range names {
		names[i] = q.CaptureNameForId(uint32(i))
	}

	compiled := &Compiled{
		path:    req.Path,
		shape:   req.Shape,
		chain:   chain,
		pattern: pat,
		source:  src,
		query:   q,
		names:   names,
	}
	c.log.Debug("compiled pattern",
		slog.String("path", req.Path.String()),
		slog.String("shape", req.Shape.String()),
		slog.String("frames", chain.String()),
		slog.String("pattern", src))
	if c.cache != nil {
		c.cache.Add(key, compiled)
	}
	return compiled, nil
}

func (c *Compiler) fail(path attrpath.Path, chain scope.Chain, src string, err error) error {
	ce := &CompileError{
		Path:    path.String(),
		Frames:  chain.String(),
		Pattern: src,
		Err:     err,
	}
	c.log.Error("pattern rejected",
		slog.String("path", ce.Path),
		slog.String("frames", ce.Frames),
		slog.String("pattern", src),
		slog.Any("err", err))
	return ce
}

// withChain returns c re-bound to chain, which must share c's cache key.
func (c *Compiled) withChain(chain scope.Chain) *Compiled {
	cp := *c
	cp.chain = chain
	return &cp
}

func cacheKey(path attrpath.Path, shape ValueShape, chain scope.Chain) string {
	return strconv.Quote(path.String()) + "|" + shape.String() + "|" + chain.Key()
}

// build folds the chain around inner, innermost frame first, then wraps
// the result in the binding template.
func build(path attrpath.Path, inner *pattern.Node, chain scope.Chain) pattern.Pattern {
	var preds []pattern.Predicate
	for i := chain.Len() - 1; i >= 0; i-- {
		var p []pattern.Predicate
		inner, p = wrapFrame(chain.Frame(i), i, inner)
		preds = append(p, preds...)
	}

	attrs := make([]*pattern.Node, len(path))
	attrPreds := make([]pattern.Predicate, len(path))
	for i, seg := range path {
		name := capAttr + strconv.Itoa(i)
		attrs[i] = pattern.N(pattern.Any).As(name)
		attrPreds[i] = pattern.OneOf(name, seg.NixForms()...)
	}

	root := pattern.N("binding",
		pattern.N("attrpath", attrs...).In("attrpath").Only(),
		inner.In("expression"),
	).As(capBinding)

	return pattern.Pattern{Root: root, Predicates: append(attrPreds, preds...)}
}

func wrapFrame(f scope.Frame, i int, inner *pattern.Node) (*pattern.Node, []pattern.Predicate) {
	idx := strconv.Itoa(i)
	var preds []pattern.Predicate
	switch f.Kind {
	case scope.Dynamic:
		env := pattern.N(pattern.Any).In("environment").As(capContext + idx)
		if f.Env != "" {
			preds = append(preds, pattern.Eq(capContext+idx, f.Env))
		}
		return pattern.N("with_expression", env, inner.In("body")).As(capFrame + idx), preds
	default:
		bindings := make([]*pattern.Node, len(f.Names))
		for j, name := range f.Names {
			c := capName + idx + "." + strconv.Itoa(j)
			bindings[j] = pattern.N("binding",
				pattern.N("attrpath", pattern.N("identifier").As(c)).In("attrpath").Only(),
			)
			preds = append(preds, pattern.Eq(c, name))
		}
		group := pattern.N("binding_set", bindings...).As(capContext + idx)
		return pattern.N("let_expression", group, inner.In("body")).As(capFrame + idx), preds
	}
}
