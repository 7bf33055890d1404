package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/store"
	"github.com/agentic-research/nixsel/internal/syntax"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "export [file...] [output.db]",
		Short: "Write the selected values of one or more files into a SQLite table",
		Long: `Write every selected value, with its spans and enclosing scope, into
the values_ctx table of a SQLite database. Rows are appended.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := rf.requests()
			if err != nil {
				return err
			}
			files, output := args[:len(args)-1], args[len(args)-1]
			if output, err = filepath.Abs(output); err != nil {
				return err
			}

			c, err := newCompiler()
			if err != nil {
				return err
			}
			w, err := store.NewWriter(output)
			if err != nil {
				return err
			}

			start := time.Now()
			total := 0
			for _, name := range files {
				path, src, err := readFile(name)
				if err != nil {
					_ = w.Close()
					return err
				}
				doc, err := syntax.Parse(cmd.Context(), path, src)
				if err != nil {
					_ = w.Close()
					return err
				}
				n, err := exportDocument(cmd, c, w, doc, reqs)
				doc.Close()
				if err != nil {
					_ = w.Close()
					return err
				}
				slog.Debug("exported file", "path", path, "values", n)
				total += n
			}
			if err := w.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d values from %d files to %s in %v.\n",
				total, len(files), output, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func exportDocument(cmd *cobra.Command, c *selector.Compiler, w *store.Writer, doc *syntax.Document, reqs []selector.Request) (int, error) {
	n := 0
	for _, req := range reqs {
		vals, err := c.Select(cmd.Context(), doc, req)
		if err != nil {
			return n, err
		}
		for v := range vals.All() {
			if err := w.Add(doc.Path, v.Record(req.Path.String())); err != nil {
				return n, err
			}
			n++
		}
		if err := vals.Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
