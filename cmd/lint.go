package cmd

import (
	"fmt"

	"github.com/agentic-research/nixsel/internal/linter"
	"github.com/spf13/cobra"
)

func newLintCmd() *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "lint [file|-]",
		Short: "Report duplicate elements in the selected lists",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := rf.requests()
			if err != nil {
				return err
			}
			doc, err := loadDocument(cmd, args)
			if err != nil {
				return err
			}
			defer doc.Close()

			c, err := newCompiler()
			if err != nil {
				return err
			}
			total := 0
			for _, req := range reqs {
				diags, err := linter.Lint(cmd.Context(), c, doc, req)
				if err != nil {
					return err
				}
				for _, d := range diags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", doc.Path, d)
				}
				total += len(diags)
			}
			if total > 0 {
				return fmt.Errorf("%d issues found", total)
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
