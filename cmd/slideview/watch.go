package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jkudo/slideview/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run passes whenever sources change",
	Long: `Watch runs an initial pass, then runs another whenever presentation files
in the source directory are added, changed, or removed. Bursts of changes
are coalesced: a pass starts once the directory has been quiet for
watch.debounce. Set watch.interval to also run passes on a timer.

Watch stops on interrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := a.newPipeline(ctx, true)
		if err != nil {
			return err
		}

		w := &watch.Watcher{
			Runner:     p,
			Dir:        a.cfg.SourceDir,
			Extensions: a.cfg.NormalizedExtensions(),
			Debounce:   a.cfg.Watch.Debounce,
			Interval:   a.cfg.Watch.Interval,
			Logger:     a.logger,
		}
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
