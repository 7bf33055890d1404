package cmd

import (
	"errors"
	"log/slog"

	"github.com/agentic-research/nixsel/internal/edit"
	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var (
		rf      requestFlags
		edits   edit.Edits
		inPlace bool
	)

	cmd := &cobra.Command{
		Use:   "edit [file|-]",
		Short: "Add or remove list elements of the selected bindings",
		Long: `Add or remove elements of every list the request selects. The result
must parse; it is printed, or written back atomically with --in-place.

  nixsel edit default.nix -a maintainers -f with=lib.maintainers --add-expr alice --remove-expr bob -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if edits.Empty() {
				return errors.New("nothing to do: pass --add-expr or --remove-expr")
			}
			if inPlace && (len(args) == 0 || args[0] == "-") {
				return errors.New("--in-place needs a file argument")
			}
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
			compiled := make([]*selector.Compiled, 0, len(reqs))
			for _, req := range reqs {
				cc, err := c.Compile(req)
				if err != nil {
					return err
				}
				compiled = append(compiled, cc)
			}
			splices, err := edit.Plan(cmd.Context(), doc, edits, compiled...)
			if err != nil {
				return err
			}

			out, err := edit.ApplyChecked(cmd.Context(), doc, splices)
			if err != nil {
				return err
			}
			if !inPlace {
				_, err := cmd.OutOrStdout().Write(out)
				return err
			}
			if len(splices) == 0 {
				slog.Info("no matching bindings, file unchanged", "path", doc.Path)
				return nil
			}
			if err := edit.WriteFile(fsys, doc.Path, out); err != nil {
				return err
			}
			slog.Info("edited", "path", doc.Path, "splices", len(splices))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringArrayVar(&edits.Add, "add-expr", nil, "Element to append to each selected list (repeatable)")
	cmd.Flags().StringArrayVar(&edits.Remove, "remove-expr", nil, "Element source text to remove (repeatable)")
	cmd.Flags().BoolVarP(&inPlace, "in-place", "i", false, "Write the result back to the file")
	return cmd
}
