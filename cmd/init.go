package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/kar/pkg/templates"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config",
		Long: `Write a starter config into the directory of --config.

The TypeScript starter also writes types/index.ts with the config types
and helper functions. An existing config is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Dir(opts.configPath)
			written, err := templates.NewManager().Install(dir, templates.Format(format), templates.DefaultData())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range written {
				fmt.Fprintf(out, "%s %s\n", render(successStyle, "Created"), p)
			}
			if config := written[0]; config != opts.configPath {
				fmt.Fprintln(out, render(faintStyle, fmt.Sprintf("Build it with: kar --config %s", config)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(templates.FormatTS), "Starter format: ts, lua or yaml")

	return cmd
}
