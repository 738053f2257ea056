package rerank

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/inference"
)

// CrossEncoder calls a text-embeddings-inference style /rerank endpoint
// serving a cross-encoder such as ms-marco-MiniLM-L-6-v2.
type CrossEncoder struct {
	client *inference.Client
	url    string
	model  string
}

func NewCrossEncoder(client *inference.Client, baseURL, model string) *CrossEncoder {
	return &CrossEncoder{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + "/rerank",
		model:  model,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (c *CrossEncoder) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	var results []rerankResult
	req := rerankRequest{Query: query, Texts: passages}
	if err := c.client.PostJSON(ctx, c.url, req, &results); err != nil {
		return nil, err
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("re-ranker returned index %d for %d passages", r.Index, len(passages))
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("re-ranker returned no score for passage %d", i)
		}
	}

	log.Debug().Str("model", c.model).Int("passages", len(passages)).Msg("Re-ranked passages")
	return scores, nil
}
