package selector

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedValueShape is returned for shapes without a pattern.
	ErrUnsupportedValueShape = errors.New("unsupported value shape")
	// ErrPatternCompile marks a structurally built pattern that the query
	// engine rejected. It indicates a bug in the compiler, not in the request.
	ErrPatternCompile = errors.New("pattern compile error")
)

// CompileError carries enough of the request to reproduce a rejected pattern.
type CompileError struct {
	Path    string // attribute path in Nix syntax
	Frames  string // frame chain, outermost first
	Pattern string // rendered query source, empty if rendering failed
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s under %s: %v", e.Path, e.Frames, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Is(target error) bool { return target == ErrPatternCompile }
