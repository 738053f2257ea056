package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type summaryOutput struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>...",
	Short: "Summarize the beginning of each document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, err := newRAG(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		var out []summaryOutput
		for _, path := range args {
			doc, err := loadDocument(path)
			if err != nil {
				return err
			}
			summary, err := r.Summarize(ctx, doc)
			if err != nil {
				return fmt.Errorf("summarizing %s: %w", path, err)
			}
			out = append(out, summaryOutput{Name: doc.Name, Summary: summary})
		}

		if jsonOutput {
			printJSON(out)
			return nil
		}
		for _, s := range out {
			fmt.Printf("# %s\n%s\n\n", s.Name, s.Summary)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}
