package cmd

import (
	"github.com/grovetools/kar/pkg/logger"
	"github.com/grovetools/kar/pkg/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath    string
	profile       string
	karabinerPath string
	runtime       string
	dryRun        bool
	strictLayers  bool
	verbose       bool
	debug         bool
}

// NewRootCmd builds the kar command tree. Flag defaults come from s.
func NewRootCmd(s settings.Settings) *cobra.Command {
	opts := &rootOptions{debug: s.Debug}

	cmd := &cobra.Command{
		Use:   "kar",
		Short: "Compile a simplified keyboard config into Karabiner-Elements rules",
		Long: `kar evaluates a keyboard config written in TypeScript, Lua, JSON, YAML or
TOML, compiles it into Karabiner-Elements complex modification rules and
writes them into a profile of karabiner.json.

Running kar without a subcommand is the same as 'kar build'.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return opts.resolve() },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	addPersistentFlags(cmd.PersistentFlags(), opts, s)

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newKeysCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addPersistentFlags(flags *pflag.FlagSet, opts *rootOptions, s settings.Settings) {
	flags.StringVarP(&opts.configPath, "config", "c", s.ConfigPath, "Config file (.ts, .js, .lua, .json, .yaml or .toml)")
	flags.StringVarP(&opts.profile, "profile", "p", s.Profile, "Karabiner profile to update")
	flags.StringVar(&opts.karabinerPath, "karabiner", s.KarabinerPath, "Path to karabiner.json")
	flags.StringVar(&opts.runtime, "runtime", s.Runtime, "Script runtime for TypeScript configs: auto, deno or bun")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Print the compiled rules instead of writing karabiner.json")
	flags.BoolVar(&opts.strictLayers, "strict-layers", s.StrictLayers, "Fail when a rule names an undefined simlayer")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
}

// resolve expands ~ in path flags and applies the log level.
func (o *rootOptions) resolve() error {
	var err error
	if o.configPath, err = settings.ExpandPath(o.configPath); err != nil {
		return err
	}
	if o.karabinerPath, err = settings.ExpandPath(o.karabinerPath); err != nil {
		return err
	}
	if o.verbose || o.debug {
		logger.SetDebug(true)
	}
	return nil
}

// Execute loads the environment settings and runs the root command.
func Execute() error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	return NewRootCmd(s).Execute()
}
