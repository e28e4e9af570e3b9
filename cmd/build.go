package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/grovetools/kar/pkg/compiler"
	"github.com/grovetools/kar/pkg/config"
	"github.com/grovetools/kar/pkg/karabiner"
	"github.com/grovetools/kar/pkg/logger"
	"github.com/grovetools/kar/pkg/runtime"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Compile the config and update karabiner.json",
		Long: `Evaluate the config file, compile its rules and replace the complex
modification rules and simple modifications of the selected profile in
karabiner.json. Every other part of karabiner.json is kept as it is.

With --dry-run the compiled rules are printed and nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
}

// compiled is the output of one pass over the config.
type compiled struct {
	rules  []karabiner.Rule
	simple []karabiner.SimpleModification
}

func compileConfig(ctx context.Context, opts *rootOptions) (*compiled, error) {
	log := logger.NewLogger("build")

	data, err := runtime.Evaluate(ctx, opts.configPath, runtime.Options{
		Runtime: opts.runtime,
		Logger:  logger.NewLogger("runtime"),
	})
	if err != nil {
		return nil, err
	}

	cfg, err := config.Parse(data)
	if err != nil {
		return nil, err
	}

	rules, err := compiler.Compile(cfg, compiler.Options{
		StrictLayers: opts.strictLayers,
		Logger:       logger.NewLogger("compiler"),
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"config": opts.configPath,
		"rules":  len(rules),
		"simple": len(cfg.Simple),
	}).Debug("Compiled config")

	return &compiled{rules: rules, simple: compiler.SimpleModifications(cfg)}, nil
}

func runBuild(ctx context.Context, out io.Writer, opts *rootOptions) error {
	result, err := compileConfig(ctx, opts)
	if err != nil {
		return err
	}

	if opts.dryRun {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.rules); err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		return nil
	}

	profile, err := karabiner.UpdateFile(opts.karabinerPath, opts.profile, result.rules, result.simple)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, render(successStyle, fmt.Sprintf("Updated profile '%s'", opts.profile)))

	selected, err := profile.Selected()
	if err != nil {
		logger.NewLogger("build").WithError(err).Debug("Could not read selected flag")
	} else if !selected {
		fmt.Fprintln(out, render(warningStyle, fmt.Sprintf("Profile '%s' is not the selected profile in Karabiner-Elements", opts.profile)))
	}
	return nil
}
