// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jkudo/slideview/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync passes",
	Long: `History lists recorded sync passes, newest first, with their counts.
Use --pass with a pass id to list what that pass did for each source.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	passID, _ := cmd.Flags().GetString("pass")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.cfg.History.Enabled {
		return errors.New("history is disabled (history.enabled=false)")
	}
	store, err := a.openHistory()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pretty := isTerminal(os.Stdout)

	if passID != "" {
		pass, err := store.Get(ctx, passID)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, pass)
		}
		headers, rows := eventRows(pass.Events)
		if len(rows) == 0 {
			fmt.Printf("Pass %s changed nothing.\n", pass.ID)
			return nil
		}
		fmt.Println(renderTable(headers, rows, nil, pretty))
		return nil
	}

	passes, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(os.Stdout, passes)
	}
	if len(passes) == 0 {
		fmt.Println("No passes recorded.")
		return nil
	}
	headers, rows := passRows(passes)
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	fmt.Println(renderTable(headers, rows, aligns, pretty))
	return nil
}

func passRows(passes []types.PassSummary) ([]string, [][]string) {
	headers := []string{"PASS", "STARTED", "STATE", "NEW", "UPDATED", "ORPHANED", "REPAIRED", "FAILED", "TRACKED"}
	rows := make([][]string, 0, len(passes))
	for _, p := range passes {
		rows = append(rows, []string{
			p.ID,
			p.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(p.State),
			strconv.Itoa(p.New),
			strconv.Itoa(p.Updated),
			strconv.Itoa(p.Orphaned),
			strconv.Itoa(p.Repaired),
			strconv.Itoa(p.Failed),
			strconv.Itoa(p.Tracked),
		})
	}
	return headers, rows
}

func eventRows(events []types.SourceEvent) ([]string, [][]string) {
	headers := []string{"SOURCE", "ACTION", "ERROR"}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{ev.Source, string(ev.Action), ev.Error})
	}
	return headers, rows
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of passes to list")
	historyCmd.Flags().String("pass", "", "show the per-source events of one pass")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}
