package cmd

import (
	"fmt"

	"github.com/agentic-research/nixsel/internal/attrpath"
	"github.com/spf13/cobra"
)

func newFramesCmd() *cobra.Command {
	var attr string

	cmd := &cobra.Command{
		Use:   "frames [file|-]",
		Short: "List each binding of an attribute path with the frames around its value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := attrpath.Parse(attr)
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
			found, err := c.Discover(cmd.Context(), doc, path)
			if err != nil {
				return err
			}
			for _, d := range found {
				fmt.Fprintln(cmd.OutOrStdout(), d.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&attr, "attr", "a", "", "Attribute path in Nix syntax")
	_ = cmd.MarkFlagRequired("attr")
	return cmd
}
