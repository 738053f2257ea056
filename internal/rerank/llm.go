package rerank

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

var numberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// LLMReranker asks a chat model to grade each passage from 0 to 10 and
// normalises the grade to [0, 1]. It costs one model call per passage.
type LLMReranker struct {
	llm llmservice.Completer
}

func NewLLMReranker(llm llmservice.Completer) *LLMReranker {
	return &LLMReranker{llm: llm}
}

func (r *LLMReranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	scores := make([]float64, len(passages))
	for i, p := range passages {
		reply, err := r.llm.Complete(ctx, fmt.Sprintf(models.RerankPromptTemplate, query, p))
		if err != nil {
			return nil, fmt.Errorf("grading passage %d: %w", i, err)
		}
		grade, ok := parseGrade(reply)
		if !ok {
			log.Warn().Int("passage", i).Str("reply", reply).Msg("Unparseable relevance grade, scoring 0")
		}
		scores[i] = grade / 10
	}
	return scores, nil
}

// parseGrade reads the first number in reply, clamped to [0, 10].
func parseGrade(reply string) (float64, bool) {
	m := numberRe.FindString(reply)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return min(max(v, 0), 10), true
}
