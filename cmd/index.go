package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"document-qa/internal/models"
)

var indexCmd = &cobra.Command{
	Use:   "index <file>...",
	Short: "Build (or load from cache) the index of one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, err := newRAG(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		results := make([]models.IndexResult, 0, len(args))
		for _, path := range args {
			doc, err := loadDocument(path)
			if err != nil {
				return err
			}
			idx, err := r.IndexDocument(ctx, doc)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
			results = append(results, idx.Result())
		}

		if jsonOutput {
			printJSON(results)
			return nil
		}
		for _, res := range results {
			state := "built"
			if res.Cached {
				state = "cached"
			}
			fmt.Printf("%s\t%s\t%d chunks\t%s\n", res.Key, res.Name, res.Chunks, state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
