// Package qa runs extractive question answering over re-ranked passages and
// picks the best answer.
package qa

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
)

// Span is what an extractive model returns for one passage. Start and End are
// byte offsets into the passage; they are -1 when the model gives none.
type Span struct {
	Answer string
	Score  float64
	Start  int
	End    int
}

// Extractor finds the span of passage that answers question.
type Extractor interface {
	Extract(ctx context.Context, question, passage string) (Span, error)
}

// FailureKind explains why a passage produced no answer.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureModel         FailureKind = "model"
	FailureEmpty         FailureKind = "empty"
	FailureNotExtractive FailureKind = "not_extractive"
)

// Result is the outcome of running the extractor on one passage.
type Result struct {
	Passage models.Passage
	Span    Span
	Failure FailureKind
	Err     error
}

func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// ExtractAll runs the extractor on every passage in order. A failing passage
// is recorded and skipped; ExtractAll itself only fails when ctx is done.
func ExtractAll(ctx context.Context, ex Extractor, question string, passages []models.Passage) ([]Result, error) {
	results := make([]Result, 0, len(passages))
	for _, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		span, err := ex.Extract(ctx, question, p.Content)
		res := Result{Passage: p, Span: span}
		switch {
		case errors.Is(err, ErrNotExtractive):
			res.Failure, res.Err = FailureNotExtractive, err
		case err != nil:
			res.Failure, res.Err = FailureModel, err
			log.Warn().Err(err).Int("position", p.Position).Msg("Answer extraction failed, skipping passage")
		case strings.TrimSpace(span.Answer) == "":
			res.Failure = FailureEmpty
		}
		results = append(results, res)
	}
	return results, nil
}

// SelectBest returns the successful result with the highest score. The
// running best starts at zero and is only replaced by a strictly greater
// score, so ties go to the earlier passage and a zero score never wins.
func SelectBest(results []Result) (Result, bool) {
	var (
		best      Result
		bestScore float64
		found     bool
	)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		if r.Span.Score > bestScore {
			best, bestScore, found = r, r.Span.Score, true
		}
	}
	return best, found
}

// Answer extracts from every passage and selects the best result.
func Answer(ctx context.Context, ex Extractor, question string, passages []models.Passage) (Result, bool, error) {
	results, err := ExtractAll(ctx, ex, question, passages)
	if err != nil {
		return Result{}, false, err
	}
	best, ok := SelectBest(results)
	return best, ok, nil
}
