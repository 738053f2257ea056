package main

import (
	"errors"

	"github.com/spf13/cobra"

	"document-qa/internal/rag"
)

var (
	askFile  string
	askKey   string
	askQuery string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about one document",
	Long: `Answer a question about one document, given either as a file (indexed on
first use) or as the key printed by "docqa index".`,
	Example: `  docqa ask --file report.pdf --query "Who wrote the report?"
  docqa ask --key 3f2a...-9c1e... --query "When was it published?"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if (askFile == "") == (askKey == "") {
			return errors.New("exactly one of --file or --key is required")
		}
		ctx := cmd.Context()
		r, err := newRAG(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		var idx *rag.Index
		if askKey != "" {
			idx, err = r.Open(ctx, askKey)
		} else {
			doc, lerr := loadDocument(askFile)
			if lerr != nil {
				return lerr
			}
			idx, err = r.IndexDocument(ctx, doc)
		}
		if err != nil {
			return err
		}

		resp, err := r.Query(ctx, idx, askQuery)
		if err != nil {
			return err
		}
		printResponse(resp)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "Document to ask about")
	askCmd.Flags().StringVarP(&askKey, "key", "k", "", "Key of an already indexed document")
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "Question to answer")
	askCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(askCmd)
}
