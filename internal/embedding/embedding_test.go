package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"document-qa/internal/config"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	return s.vectors, s.err
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if len(s.vectors) == 0 {
		return nil, s.err
	}
	return s.vectors[0], s.err
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func TestGenerateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("aligned vectors", func(t *testing.T) {
		stub := &stubEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}}
		got, err := GenerateEmbedding(ctx, stub, []string{"a", "b"})
		if err != nil {
			t.Fatalf("GenerateEmbedding failed: %v", err)
		}
		if len(got) != 2 || got[1][1] != 1 {
			t.Errorf("unexpected vectors %v", got)
		}
	})

	t.Run("no chunks skips the model", func(t *testing.T) {
		stub := &stubEmbedder{}
		got, err := GenerateEmbedding(ctx, stub, nil)
		if err != nil || got != nil {
			t.Errorf("GenerateEmbedding(nil) = %v, %v", got, err)
		}
		if stub.calls != 0 {
			t.Errorf("model called %d times, want 0", stub.calls)
		}
	})

	t.Run("count mismatch", func(t *testing.T) {
		stub := &stubEmbedder{vectors: [][]float32{{1, 0}}}
		_, err := GenerateEmbedding(ctx, stub, []string{"a", "b"})
		if err == nil || !strings.Contains(err.Error(), "1 vectors for 2 chunks") {
			t.Errorf("expected count mismatch error, got %v", err)
		}
	})

	t.Run("ragged vectors", func(t *testing.T) {
		stub := &stubEmbedder{vectors: [][]float32{{1, 0}, {1}}}
		if _, err := GenerateEmbedding(ctx, stub, []string{"a", "b"}); err == nil {
			t.Error("expected error for ragged vectors")
		}
	})

	t.Run("model error", func(t *testing.T) {
		boom := errors.New("boom")
		stub := &stubEmbedder{err: boom}
		if _, err := GenerateEmbedding(ctx, stub, []string{"a"}); !errors.Is(err, boom) {
			t.Errorf("expected wrapped model error, got %v", err)
		}
	})
}

func TestNewEmbedder(t *testing.T) {
	t.Run("ollama", func(t *testing.T) {
		e, err := NewEmbedder(&config.LLMConfig{Provider: "ollama", Model: "all-minilm:l6-v2"}, 16)
		if err != nil {
			t.Fatalf("NewEmbedder failed: %v", err)
		}
		if e.ModelName() != "all-minilm:l6-v2" {
			t.Errorf("ModelName = %q", e.ModelName())
		}
	})

	t.Run("openai without key", func(t *testing.T) {
		e, err := NewEmbedder(&config.LLMConfig{Provider: "openai", BaseURL: "http://localhost:8080/v1", Model: "bge-small"}, 0)
		if err != nil {
			t.Fatalf("NewEmbedder failed: %v", err)
		}
		if e.ModelName() != "bge-small" {
			t.Errorf("ModelName = %q", e.ModelName())
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := NewEmbedder(&config.LLMConfig{Provider: "cohere"}, 0); err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestLLMEmbedder_ImplementsEmbedder(t *testing.T) {
	var _ Embedder = (*LLMEmbedder)(nil)
}
