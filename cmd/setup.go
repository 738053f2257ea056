package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
)

func newRAG(ctx context.Context) (*rag.RAG, error) {
	log.Debug().
		Str("embed_model", cfg.EmbedLLM.Model).
		Str("store", cfg.Store.Backend).
		Bool("library", cfg.Library.Enabled).
		Msg("Loaded config")
	r, err := rag.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing service: %w", err)
	}
	return r, nil
}

func loadDocument(path string) (*parser.Document, error) {
	doc, err := parser.Load(path, "")
	if err != nil {
		return nil, err
	}
	log.Debug().Str("document", doc.Name).Int("pages", doc.Pages).Int("chars", len([]rune(doc.Text))).Msg("Extracted text")
	return doc, nil
}

func printResponse(resp *models.QueryResponse) {
	if jsonOutput {
		printJSON(resp)
		return
	}

	if !resp.Found {
		fmt.Println(models.NotFoundMessage)
	} else {
		fmt.Printf("Answer: %s (score %.3f)\n\n", resp.Answer, resp.Score)
		fmt.Printf("Source:\n%s\n", resp.Highlighted)
	}

	if len(resp.Candidates) == 0 {
		return
	}
	fmt.Println("\nCandidates:")
	for i, p := range resp.Candidates {
		doc := ""
		if p.Document != "" {
			doc = p.Document + " "
		}
		fmt.Printf("%d. [%s#%d score=%.3f distance=%.3f]\n   %s\n", i+1, doc, p.Position, p.Score, p.Distance, p.Content)
	}
}

func printJSON(v any) {
	helper.PrettyPrint(v)
}
