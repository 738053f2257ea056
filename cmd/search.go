package main

import (
	"github.com/spf13/cobra"
)

var searchQuery string

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Answer a question from every document in the library",
	Long: `Answer a question from every indexed document at once. Requires
library.enabled; documents are added to the library when they are indexed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		r, err := newRAG(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		resp, err := r.SearchLibrary(ctx, searchQuery)
		if err != nil {
			return err
		}
		printResponse(resp)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Question to answer")
	searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}
