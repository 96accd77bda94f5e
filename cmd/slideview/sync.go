// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jkudo/slideview/internal/pipeline"
	"github.com/jkudo/slideview/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization pass",
	Long: `Sync scans the source directory, converts new and updated presentations
to PDF, removes PDFs whose source was deleted, saves the manifest, and
regenerates the index. Unchanged sources are skipped, so running sync
repeatedly is cheap.

With --dry-run, sync prints what it would do and changes nothing.
Sync exits non-zero when any conversion failed; failed sources are retried
on the next pass.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	allowFailures, _ := cmd.Flags().GetBool("allow-failures")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := a.newPipeline(ctx, !dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		preview, err := p.Preview(ctx)
		if err != nil {
			return err
		}
		printPreview(os.Stdout, preview)
		return nil
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, summary)
	if summary.HasFailures() && !allowFailures {
		return fmt.Errorf("%d source(s) failed to convert", summary.Failed)
	}
	return nil
}

func printPreview(w io.Writer, preview pipeline.Preview) {
	plan := preview.Plan
	repair := make(map[string]bool, len(preview.Repairs))
	for _, e := range preview.Repairs {
		repair[e.Name] = true
	}

	line := func(verb, name string) { fmt.Fprintf(w, "%-9s %s\n", verb, name) }
	for _, r := range plan.Orphaned {
		line("remove", r.Name)
	}
	for _, e := range plan.New {
		line("convert", e.Name)
	}
	for _, e := range plan.Updated {
		line("update", e.Name)
	}
	for _, e := range plan.Unchanged {
		if repair[e.Name] {
			line("repair", e.Name)
		} else {
			line("skip", e.Name)
		}
	}

	fmt.Fprintf(w, "\nnew: %d, updated: %d, unchanged: %d, orphaned: %d, repair: %d (dry run)\n",
		len(plan.New), len(plan.Updated), len(plan.Unchanged)-len(preview.Repairs),
		len(plan.Orphaned), len(preview.Repairs))
}

func printSummary(w io.Writer, s types.PassSummary) {
	for _, ev := range s.Events {
		if ev.Error != "" {
			fmt.Fprintf(w, "%-9s %s: %s\n", ev.Action, ev.Source, ev.Error)
			continue
		}
		fmt.Fprintf(w, "%-9s %s\n", ev.Action, ev.Source)
	}
	fmt.Fprintf(w, "\nnew: %d, updated: %d, unchanged: %d, orphaned: %d, repaired: %d, failed: %d\n",
		s.New, s.Updated, s.Unchanged, s.Orphaned, s.Repaired, s.Failed)
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "print the planned actions without converting or writing")
	syncCmd.Flags().Bool("allow-failures", false, "exit zero even when conversions failed")

	rootCmd.AddCommand(syncCmd)
}
