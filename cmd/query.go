package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "query [file|-]",
		Short: "Print the tree-sitter query compiled for a request",
		Long: `Print the tree-sitter query each request compiles to. With a file
argument the parse tree of the file is printed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := rf.requests()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				doc, err := loadDocument(cmd, args)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "tree: %s\n", doc.Root().String())
				doc.Close()
			}

			c, err := newCompiler()
			if err != nil {
				return err
			}
			for _, req := range reqs {
				compiled, err := c.Compile(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "; %s\n%s", req, compiled.Source())
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
