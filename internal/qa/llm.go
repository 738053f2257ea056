package qa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

// ErrNotExtractive means a generative model answered with text that does not
// occur in the passage.
var ErrNotExtractive = errors.New("answer is not a span of the passage")

// LLMExtractor prompts a chat model to copy the answer span out of the
// passage. Answers that are not verbatim substrings are rejected.
type LLMExtractor struct {
	llm llmservice.Completer
}

func NewLLMExtractor(llm llmservice.Completer) *LLMExtractor {
	return &LLMExtractor{llm: llm}
}

type llmAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

func (e *LLMExtractor) Extract(ctx context.Context, question, passage string) (Span, error) {
	reply, err := e.llm.Complete(ctx, fmt.Sprintf(models.ExtractPromptTemplate, passage, question))
	if err != nil {
		return Span{}, err
	}

	var ans llmAnswer
	if err := json.Unmarshal([]byte(jsonObject(reply)), &ans); err != nil {
		return Span{}, fmt.Errorf("decoding model answer %q: %w", reply, err)
	}
	ans.Answer = strings.TrimSpace(ans.Answer)
	if ans.Answer == "" {
		return Span{Start: -1, End: -1}, nil
	}

	start := strings.Index(passage, ans.Answer)
	if start < 0 {
		return Span{}, fmt.Errorf("%w: %q", ErrNotExtractive, ans.Answer)
	}
	return Span{
		Answer: ans.Answer,
		Score:  min(max(ans.Confidence, 0), 1),
		Start:  start,
		End:    start + len(ans.Answer),
	}, nil
}

// jsonObject trims code fences and chatter around the first {...} in s.
func jsonObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
