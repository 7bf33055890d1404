package syntax

import (
	"sync"

	tree_sitter_nix "github.com/nix-community/tree-sitter-nix/bindings/go"
	sitter "github.com/smacker/go-tree-sitter"
)

var (
	nixOnce sync.Once
	nixLang *sitter.Language
)

// Nix returns the tree-sitter language for Nix expressions.
// The grammar ships its own Go binding; smacker's runtime adopts it
// through the raw TSLanguage pointer.
func Nix() *sitter.Language {
	nixOnce.Do(func() {
		nixLang = sitter.NewLanguage(tree_sitter_nix.Language())
	})
	return nixLang
}
