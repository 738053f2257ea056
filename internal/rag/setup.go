package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-qa/internal/cache"
	"document-qa/internal/chromemdb"
	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/embedding"
	"document-qa/internal/inference"
	"document-qa/internal/llmservice"
	"document-qa/internal/qa"
	"document-qa/internal/rerank"
	"document-qa/internal/summarize"
)

func usesLLM(cfg *config.Config) bool {
	return cfg.Rerank.Backend == "llm" || cfg.QA.Backend == "llm" || cfg.Summarize.Backend == "llm"
}

// NewModels creates every model client named in cfg.
func NewModels(cfg *config.Config) (Models, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.RAG.BatchSize)
	if err != nil {
		return Models{}, err
	}

	client := inference.NewClient(cfg.Inference)
	var chat llmservice.Completer
	if usesLLM(cfg) {
		c, err := llmservice.NewClient(&cfg.ChatLLM)
		if err != nil {
			return Models{}, err
		}
		chat = c
	}

	m := Models{Embedder: embedder}
	switch cfg.Rerank.Backend {
	case "llm":
		m.Reranker = rerank.NewLLMReranker(chat)
	default:
		m.Reranker = rerank.NewCrossEncoder(client, cfg.Rerank.URL, cfg.Rerank.Model)
	}
	switch cfg.QA.Backend {
	case "llm":
		m.Extractor = qa.NewLLMExtractor(chat)
	default:
		m.Extractor = qa.NewHFExtractor(client, cfg.QA.URL)
	}

	var sm summarize.Model
	switch cfg.Summarize.Backend {
	case "llm":
		sm = summarize.NewLLMModel(chat)
	default:
		sm = summarize.NewHFModel(client, cfg.Summarize.URL)
	}
	m.Summarizer = summarize.NewSummarizer(sm, cfg.Summarize)

	log.Debug().
		Str("embedder", cfg.EmbedLLM.Model).
		Str("rerank", cfg.Rerank.Backend).
		Str("qa", cfg.QA.Backend).
		Str("summarize", cfg.Summarize.Backend).
		Msg("Models configured")
	return m, nil
}

// NewCacheStore opens the configured cache backend.
func NewCacheStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return db.Open(ctx, cfg.Database)
	case "", "file":
		return cache.NewFileStore(cfg.RAG.CacheDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewFromConfig wires models, cache store and library from cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*RAG, error) {
	m, err := NewModels(cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewCacheStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var library *chromemdb.Library
	if cfg.Library.Enabled {
		if library, err = chromemdb.NewLibrary(cfg.Library); err != nil {
			store.Close()
			return nil, err
		}
	}

	r, err := NewRAG(m, store, library, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return r, nil
}
