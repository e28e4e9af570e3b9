package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/kar/pkg/logger"
	"github.com/grovetools/kar/pkg/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever the config file changes",
		Long: `Build once, then watch the config file and rebuild after every change.
A failed build is reported and watching continues. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), opts)
		},
	}
}

func runWatch(ctx context.Context, out io.Writer, opts *rootOptions) error {
	w, err := watch.New(opts.configPath,
		func(ctx context.Context) error { return runBuild(ctx, out, opts) },
		watch.WithLogger(logger.NewLogger("watch")),
		watch.WithResultHandler(func(initial bool, err error) {
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", render(errorStyle, "Build failed:"), err)
				return
			}
			if !initial {
				fmt.Fprintln(out, render(faintStyle, "Rebuilt at "+time.Now().Format("15:04:05")))
			}
		}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", render(infoStyle, "Watching"), w.Path())
	if err := w.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, render(faintStyle, "Stopped watching"))
	return nil
}
