package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/grovetools/kar/pkg/keys"
	"github.com/spf13/cobra"
)

func newKeysMatrixCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool
	var conditionalOnly bool

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "View a matrix of all triggers across layers",
		Long: `Display a spreadsheet-style matrix showing what each trigger does in each
layer. Cells that only apply under a rule condition show it in brackets.

Use --conditional to show only rows with such cells.
Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output matrix in JSON format")
	cmd.Flags().BoolVar(&conditionalOnly, "conditional", false, "Show only rows with conditional bindings")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		bindings, err := loadBindings(cmd.Context(), opts)
		if err != nil {
			return err
		}

		matrix := keys.BuildMatrix(bindings)
		out := cmd.OutOrStdout()

		if jsonOutput {
			data, err := json.MarshalIndent(matrix, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

		header := []string{"KEY"}
		for _, layer := range matrix.Layers {
			header = append(header, strings.ToUpper(layer))
		}
		fmt.Fprintln(w, render(boldStyle, strings.Join(header, "\t")))

		sep := make([]string, len(header))
		for i := range sep {
			sep[i] = "─────"
		}
		fmt.Fprintln(w, render(faintStyle, strings.Join(sep, "\t")))

		shown, layered := 0, 0
		for _, row := range matrix.Rows {
			if conditionalOnly && !row.Conditional {
				continue
			}
			shown++

			cells := []string{render(highlightStyle, row.Trigger)}
			for _, layer := range matrix.Layers {
				val := "-"
				if output, ok := row.Layers[layer]; ok {
					val = output
				}
				cells = append(cells, val)
			}
			if len(row.Layers) > 1 {
				layered++
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}

		w.Flush()

		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s  Triggers: %d  │  Layers: %d  │  Used in several layers: %d\n",
			render(faintStyle, "Summary:"),
			shown,
			len(matrix.Layers),
			layered)

		return nil
	}

	return cmd
}
