package cmd

import (
	"github.com/agentic-research/nixsel/internal/render"
	"github.com/spf13/cobra"
)

func newSelectCmd() *cobra.Command {
	var (
		rf       requestFlags
		format   string
		jsonpath string
	)

	cmd := &cobra.Command{
		Use:   "select [file|-]",
		Short: "Print the values bound to an attribute path",
		Long: `Print every element of the lists bound to an attribute path, with the
innermost enclosing scope of each. Frames constrain which bindings match:

  nixsel select default.nix --attr maintainers --frame with=lib.maintainers`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := rf.requests()
			if err != nil {
				return err
			}
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			w, err := render.NewWriter(cmd.OutOrStdout(), f, jsonpath)
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
			for _, req := range reqs {
				vals, err := c.Select(cmd.Context(), doc, req)
				if err != nil {
					return err
				}
				for v := range vals.All() {
					if err := w.Write(v.Record(req.Path.String())); err != nil {
						return err
					}
				}
				if err := vals.Err(); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, jsonl)")
	cmd.Flags().StringVar(&jsonpath, "jsonpath", "", "JSONPath applied to the array of results")
	return cmd
}
