// Package rerank re-scores retrieved passages with a cross-encoder style model
// that reads the query and the passage together.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"document-qa/internal/models"
)

// Reranker scores (query, passage) pairs. The result is aligned with
// passages; higher means more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Rerank scores candidates, orders them by descending score and keeps the
// first topN. Equal scores keep the incoming (vector distance) order. An empty
// candidate list returns without calling the model.
func Rerank(ctx context.Context, r Reranker, query string, candidates []models.Passage, topN int) ([]models.Passage, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}

	scores, err := r.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("re-ranking %d passages: %w", len(candidates), err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("re-ranker returned %d scores for %d passages", len(scores), len(candidates))
	}

	ranked := make([]models.Passage, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score = scores[i]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}
