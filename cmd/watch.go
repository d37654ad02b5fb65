// glut watch [path] [-- args...]
package cmd

import (
	"context"
	"time"

	"github.com/qobs-build/glut/internal/msg"
	"github.com/qobs-build/glut/internal/toolchain"
	"github.com/qobs-build/glut/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagDebounce time.Duration
	flagGrace    time.Duration
)

func doWatch(cmd *cobra.Command, args []string) {
	target, programArgs := splitArgs(cmd, args)
	b := newBuilder(target)
	mode := toolchain.ModeFromRelease(release)

	ctx, stop := signalContext()
	defer stop()

	notifier, err := watch.NewNotifier(b.Dir(), b, flagDebounce)
	if err != nil {
		msg.Fatal("could not watch %s: %v", b.Dir(), err)
	}
	supervisor := watch.NewSupervisor(
		func(ctx context.Context) (string, error) {
			return b.Build(ctx, mode)
		},
		watch.ExecLauncher{Dir: b.Dir(), Args: programArgs},
		watch.WithGrace(flagGrace),
		watch.WithTransitionHook(func(from, to watch.State) {
			if to == watch.Failed {
				msg.Warn("waiting for changes to rebuild")
			}
		}),
	)

	msg.Info("watching %s, press Ctrl+C to stop", b.Dir())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Run(ctx)
	})
	g.Go(func() error {
		return supervisor.Run(ctx, notifier.Changes())
	})
	if err := g.Wait(); err != nil {
		msg.Fatal("%v", err)
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch [target path] [-- args...]",
	Short: "Rebuild and restart the program whenever a source file changes",
	Long:  `Build and run the project, then rebuild and restart it on every change to its sources, headers or Glut.toml. Build errors are reported and the watcher keeps running.`,
	Args:  cobra.ArbitraryArgs,
	Run:   doWatch,
}

func init() {
	// glut watch subcommand
	rootCmd.AddCommand(watchCmd)
	addBuildFlags(watchCmd)
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "Quiet period that ends a burst of changes")
	watchCmd.Flags().DurationVar(&flagGrace, "grace", watch.DefaultGrace, "How long the program may take to exit before it is killed")
}
