package cmd

import (
	"context"

	"github.com/grovetools/kar/pkg/keys"
	"github.com/spf13/cobra"
)

// newKeysCmd creates the parent 'kar keys' command.
func newKeysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect the triggers of the compiled rules",
		Long: `Inspect the bindings produced by compiling the config.

Bindings are grouped by simlayer. Bindings outside any simlayer belong to
the "base" layer, and rule conditions such as frontmost app tests are shown
as the binding's context.`,
	}

	cmd.AddCommand(newKeysCheckCmd(opts))
	cmd.AddCommand(newKeysMatrixCmd(opts))

	return cmd
}

// loadBindings compiles the config and extracts its bindings.
func loadBindings(ctx context.Context, opts *rootOptions) ([]keys.Binding, error) {
	result, err := compileConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return keys.Extract(result.rules), nil
}
