package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
)

// placeholder token for OpenAI compatible servers that do not check keys
const noKey = "EMPTY"

// Embedder turns text into vectors. EmbedDocuments returns one vector per
// input, in input order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// LLMEmbedder adapts a langchaingo embedder and remembers which model it uses.
type LLMEmbedder struct {
	impl  *embeddings.EmbedderImpl
	model string
}

func (e *LLMEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.impl.EmbedDocuments(ctx, texts)
}

func (e *LLMEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.impl.EmbedQuery(ctx, text)
}

func (e *LLMEmbedder) ModelName() string {
	return e.model
}

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(llmConfig *config.LLMConfig, batchSize int) (*LLMEmbedder, error) {
	switch llmConfig.Provider {
	case "", "ollama":
		return NewOllamaEmbedder(llmConfig, batchSize)
	case "openai":
		return NewOpenAIEmbedder(llmConfig, batchSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", llmConfig.Provider)
	}
}

// new ollama embedder
func NewOllamaEmbedder(llmConfig *config.LLMConfig, batchSize int) (*LLMEmbedder, error) {
	log.Debug().
		Str("base_url", llmConfig.BaseURL).
		Str("embedding_model", llmConfig.Model).
		Msg("Creating ollama embedder")

	opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama: %w", err)
	}
	return wrap(llm, llmConfig.Model, batchSize)
}

// NewOpenAIEmbedder creates an embedder against an OpenAI compatible API.
func NewOpenAIEmbedder(llmConfig *config.LLMConfig, batchSize int) (*LLMEmbedder, error) {
	log.Debug().
		Str("base_url", llmConfig.BaseURL).
		Str("embedding_model", llmConfig.Model).
		Msg("Creating openai embedder")

	token := strings.TrimPrefix(llmConfig.Key, "Bearer ")
	if token == "" {
		token = noKey
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing openai: %w", err)
	}
	return wrap(llm, llmConfig.Model, batchSize)
}

func wrap(client embeddings.EmbedderClient, model string, batchSize int) (*LLMEmbedder, error) {
	var opts []embeddings.Option
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	impl, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &LLMEmbedder{impl: impl, model: model}, nil
}

// GenerateEmbedding batch-encodes chunks. The result is aligned with chunks:
// vectors[i] embeds chunks[i]. Every vector must have the same width.
func GenerateEmbedding(ctx context.Context, embedder Embedder, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	vectors, err := embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("embedding model returned an empty vector")
	}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("chunk %d: embedding has %d dimensions, want %d", i, len(v), dims)
		}
	}
	return vectors, nil
}
