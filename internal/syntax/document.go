// Package syntax parses Nix source into an immutable concrete syntax tree
// and exposes the byte-addressed views that selection and editing borrow.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("parse error")

// ParseError reports the first syntax error found in a document.
type ParseError struct {
	Path    string
	Line    uint32 // 0-indexed
	Column  uint32 // 0-indexed
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line+1, e.Column+1, e.Message)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Span is a half-open byte range into a document's source.
type Span struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// SpanOf returns the byte range covered by n.
func SpanOf(n *sitter.Node) Span {
	return Span{Start: n.StartByte(), End: n.EndByte()}
}

// Contains reports whether o lies inside s. Equal spans contain each other.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// StrictlyContains reports whether o lies inside s and differs from it.
func (s Span) StrictlyContains(o Span) bool {
	return s.Contains(o) && s != o
}

func (s Span) String() string { return fmt.Sprintf("[%d:%d]", s.Start, s.End) }

// Document is a parsed source text. Source and Tree are never mutated
// after Parse returns; nodes handed out by a Document borrow both.
type Document struct {
	Path   string
	Source []byte
	Tree   *sitter.Tree
	Lang   *sitter.Language
}

// Parse parses src as a Nix expression. A document containing syntax
// errors is rejected with a *ParseError; there is no partial tree to
// select against.
func Parse(ctx context.Context, path string, src []byte) (*Document, error) {
	lang := Nix()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed for %s: %w", path, err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("tree-sitter returned nil root for %s", path)
	}

	if root.HasError() {
		defer tree.Close()
		if errNode := findFirstError(root); errNode != nil {
			msg := "syntax error"
			if errNode.IsMissing() {
				msg = fmt.Sprintf("missing %s", errNode.Type())
			}
			return nil, &ParseError{
				Path:    path,
				Line:    errNode.StartPoint().Row,
				Column:  errNode.StartPoint().Column,
				Message: msg,
			}
		}
		return nil, &ParseError{Path: path, Message: "syntax tree contains errors"}
	}

	return &Document{Path: path, Source: src, Tree: tree, Lang: lang}, nil
}

// Root returns the document's root node.
func (d *Document) Root() *sitter.Node {
	return d.Tree.RootNode()
}

// Text returns the source text covered by n, or "" for a nil node.
func (d *Document) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(d.Slice(SpanOf(n)))
}

// Slice returns the bytes of s without copying. Out-of-range spans
// yield nil.
func (d *Document) Slice(s Span) []byte {
	if s.Start > s.End || int(s.End) > len(d.Source) {
		return nil
	}
	return d.Source[s.Start:s.End]
}

// Close releases the syntax tree. Nodes obtained from the document must
// not be used afterwards.
func (d *Document) Close() {
	if d.Tree != nil {
		d.Tree.Close()
	}
}

// findFirstError does a depth-first search for the first ERROR or MISSING node.
func findFirstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := findFirstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}
