package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Regenerate the index from the manifest",
	Long: `Index rewrites the published index (and the source list, when
index.sources_path is set) from the current manifest without scanning
sources or converting anything. Use it after changing index.format or
index.title.`,
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
		if err := p.Publish(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", a.cfg.Index.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
