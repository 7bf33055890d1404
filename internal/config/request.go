// Package config loads selection requests from HCL files.
//
//	select "meta.maintainers" {
//	  shape = "list"
//	  frame "with" { env = "lib.maintainers" }
//	  frame "let" { names = ["x"] }
//	}
//
// Frames are listed outermost first.
package config

import (
	"errors"
	"fmt"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/selector"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// ErrNoRequests is returned for a file without select blocks.
var ErrNoRequests = errors.New("request file has no select blocks")

// File is the decoded form of a request file.
type File struct {
	Selects []Select `hcl:"select,block"`
}

// Select is one selection request.
type Select struct {
	// Attr is the attribute path in Nix syntax, e.g. `meta."a.b"`.
	Attr   string  `hcl:"attr,label"`
	Shape  string  `hcl:"shape,optional"`
	Frames []Frame `hcl:"frame,block"`
}

// Frame is one scope frame; Kind is the block label.
type Frame struct {
	Kind  string   `hcl:"kind,label"`
	Env   string   `hcl:"env,optional"`
	Names []string `hcl:"names,optional"`
}

// Parse decodes src. The filename extension selects the syntax (.hcl or
// .json) and is used in diagnostics.
func Parse(filename string, src []byte) (*File, error) {
	var f File
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	if len(f.Selects) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoRequests)
	}
	return &f, nil
}

// Load reads and decodes a request file from fs.
func Load(fs billy.Filesystem, path string) (*File, error) {
	src, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	return Parse(path, src)
}

// Requests converts every select block, in file order.
func (f *File) Requests() ([]selector.Request, error) {
	out := make([]selector.Request, 0, len(f.Selects))
	for i, s := range f.Selects {
		req, err := s.Request()
		if err != nil {
			return nil, fmt.Errorf("select %d (%s): %w", i, s.Attr, err)
		}
		out = append(out, req)
	}
	return out, nil
}

// Request converts the block. An empty shape means list.
func (s Select) Request() (selector.Request, error) {
	path, err := attrpath.Parse(s.Attr)
	if err != nil {
		return selector.Request{}, err
	}
	shape := selector.ListElements
	if s.Shape != "" {
		if shape, err = selector.ParseShape(s.Shape); err != nil {
			return selector.Request{}, err
		}
	}
	frames := make([]scope.Frame, 0, len(s.Frames))
	for _, fb := range s.Frames {
		kind, err := scope.ParseKind(fb.Kind)
		if err != nil {
			return selector.Request{}, err
		}
		frames = append(frames, scope.Frame{Kind: kind, Env: fb.Env, Names: fb.Names})
	}
	return selector.Request{Path: path, Shape: shape, Frames: frames}, nil
}
