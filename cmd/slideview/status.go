// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jkudo/slideview/internal/diff"
	"github.com/jkudo/slideview/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked sources and their PDFs",
	Long: `Status lists every source in the manifest or the source directory with
what the next pass would do for it, the source modification time recorded
at its last conversion, and whether its PDF is present. Nothing is converted or written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.newPipeline(context.Background(), false)
		if err != nil {
			return err
		}
		preview, err := p.Preview(context.Background())
		if err != nil {
			return err
		}

		headers, rows := statusRows(a.fs, p, preview, time.Now())
		if len(rows) == 0 {
			fmt.Println("No sources found.")
			return nil
		}
		aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}
		fmt.Println(renderTable(headers, rows, aligns, isTerminal(os.Stdout)))
		return nil
	},
}

type statusRow struct {
	name     string
	next     string
	recorded time.Time
}

// statusRows builds one row per source name, sorted by name.
func statusRows(fs afero.Fs, p *pipeline.Pipeline, preview pipeline.Preview, now time.Time) ([]string, [][]string) {
	repair := make(map[string]bool, len(preview.Repairs))
	for _, e := range preview.Repairs {
		repair[e.Name] = true
	}

	var entries []statusRow
	add := func(e diff.Entry, next string) {
		row := statusRow{name: e.Name, next: next}
		if e.Previous != nil {
			row.recorded = e.Previous.LastModified
		}
		entries = append(entries, row)
	}
	for _, e := range preview.Plan.New {
		add(e, "convert")
	}
	for _, e := range preview.Plan.Updated {
		add(e, "update")
	}
	for _, e := range preview.Plan.Unchanged {
		if repair[e.Name] {
			add(e, "repair")
		} else {
			add(e, "up to date")
		}
	}
	for _, r := range preview.Plan.Orphaned {
		entries = append(entries, statusRow{name: r.Name, next: "remove", recorded: r.LastModified})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	headers := []string{"SOURCE", "NEXT PASS", "SOURCE MTIME", "PDF"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		recorded := "untracked"
		if !e.recorded.IsZero() {
			recorded = humanize.RelTime(e.recorded, now, "ago", "from now")
		}
		pdf := "missing"
		if info, err := fs.Stat(p.ArtifactPath(e.name)); err == nil && info.Mode().IsRegular() {
			pdf = humanize.Bytes(uint64(info.Size()))
		}
		rows = append(rows, []string{e.name, e.next, recorded, pdf})
	}
	return headers, rows
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
