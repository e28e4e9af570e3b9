package cmd

import (
	"fmt"

	"github.com/grovetools/kar/pkg/schema"
	"github.com/spf13/cobra"
)

// newSchemaCmd creates the `schema` command.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config format",
		Long: `Print the JSON Schema describing kar configs.

Point an editor at it for completion and validation of JSON and YAML
configs, for example with a yaml-language-server modeline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.JSON()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
