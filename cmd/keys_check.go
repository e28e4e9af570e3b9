package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grovetools/kar/pkg/keys"
	"github.com/spf13/cobra"
)

// newKeysCheckCmd creates the 'kar keys check' command.
func newKeysCheckCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report triggers bound more than once",
		Long: `Compile the config and report conflicts within each layer.

A conflict is a trigger bound to different outputs in the same layer and
context. Karabiner only fires the first matching manipulator, so the later
bindings are dead. The same trigger in different layers or under different
conditions is not a conflict.`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output conflicts in JSON format")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		bindings, err := loadBindings(cmd.Context(), opts)
		if err != nil {
			return err
		}

		conflicts := keys.DetectConflicts(bindings)
		out := cmd.OutOrStdout()

		if jsonOutput {
			if conflicts == nil {
				conflicts = []keys.Conflict{}
			}
			data, err := json.MarshalIndent(conflicts, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintln(out, render(headerStyle, "kar keybindings check"))
		fmt.Fprintln(out)

		grouped := keys.GroupConflictsByLayer(conflicts)
		for _, layer := range keys.Layers(bindings) {
			layerConflicts := grouped[layer]
			name := strings.ToUpper(layer)

			if len(layerConflicts) == 0 {
				fmt.Fprintf(out, "%s %s: %s (%d bindings)\n",
					render(successStyle, "✓"),
					render(boldStyle, name),
					render(successStyle, "No conflicts"),
					keys.CountBindings(bindings, layer))
				continue
			}

			fmt.Fprintf(out, "%s %s: %s\n",
				render(errorStyle, "✗"),
				render(boldStyle, name),
				render(errorStyle, fmt.Sprintf("%d conflict(s)", len(layerConflicts))))
			for _, c := range layerConflicts {
				var outputs []string
				for _, b := range c.Bindings {
					outputs = append(outputs, fmt.Sprintf("%s (%s)", b.Output, b.Rule))
				}
				trigger := c.Trigger
				if c.Context != "" {
					trigger += " [" + c.Context + "]"
				}
				fmt.Fprintf(out, "     %s: %s\n", render(highlightStyle, trigger), strings.Join(outputs, ", "))
			}
		}

		fmt.Fprintln(out)
		if len(conflicts) > 0 {
			fmt.Fprintln(out, render(warningStyle, "Conflicts detected! Only the first binding of each trigger fires."))
		} else {
			fmt.Fprintln(out, render(successStyle, "All keybindings are conflict-free!"))
		}
		return nil
	}

	return cmd
}
