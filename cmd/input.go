package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/agentic-research/nixsel/internal/config"
	"github.com/agentic-research/nixsel/internal/scope"
	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/syntax"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"
)

// fsys is the filesystem commands read and write through. Paths are made
// absolute before use.
var fsys billy.Filesystem = osfs.New("/")

const stdinName = "<stdin>"

// readInput reads args[0], or stdin when it is absent or "-".
func readInput(cmd *cobra.Command, args []string) (string, []byte, error) {
	if len(args) == 0 || args[0] == "-" {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		return stdinName, src, nil
	}
	return readFile(args[0])
}

func readFile(name string) (string, []byte, error) {
	path, err := filepath.Abs(name)
	if err != nil {
		return "", nil, err
	}
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", name, err)
	}
	return path, src, nil
}

func loadDocument(cmd *cobra.Command, args []string) (*syntax.Document, error) {
	name, src, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	return syntax.Parse(cmd.Context(), name, src)
}

func newCompiler() (*selector.Compiler, error) {
	return selector.NewCompiler(selector.DefaultCompilerConfig())
}

// requestFlags are the selection flags shared by most commands.
type requestFlags struct {
	attr    string
	shape   string
	frames  []string
	request string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.attr, "attr", "a", "", "Attribute path in Nix syntax, e.g. meta.maintainers")
	fl.StringVar(&f.shape, "shape", "list", "Value shape (list)")
	fl.StringArrayVarP(&f.frames, "frame", "f", nil, "Enclosing frame, outermost first: with, with=ENV, let, let=a,b")
	fl.StringVarP(&f.request, "request", "r", "", "HCL request file with select blocks")
}

func (f *requestFlags) requests() ([]selector.Request, error) {
	if f.request != "" {
		if f.attr != "" || len(f.frames) > 0 {
			return nil, errors.New("--request cannot be combined with --attr or --frame")
		}
		path, err := filepath.Abs(f.request)
		if err != nil {
			return nil, err
		}
		file, err := config.Load(fsys, path)
		if err != nil {
			return nil, err
		}
		return file.Requests()
	}
	if f.attr == "" {
		return nil, errors.New("one of --attr or --request is required")
	}

	path, err := attrpath.Parse(f.attr)
	if err != nil {
		return nil, err
	}
	shape, err := selector.ParseShape(f.shape)
	if err != nil {
		return nil, err
	}
	frames, err := scope.ParseFrames(f.frames)
	if err != nil {
		return nil, err
	}
	return []selector.Request{{Path: path, Shape: shape, Frames: frames}}, nil
}
