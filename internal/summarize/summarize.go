// Package summarize produces a short abstractive summary of a whole document.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/inference"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

var (
	ErrEmptyText    = errors.New("nothing to summarize")
	ErrEmptySummary = errors.New("model returned an empty summary")
)

// Model turns text into a summary between minLength and maxLength tokens.
type Model interface {
	Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error)
}

// Summarizer truncates the input and applies the configured length bounds.
type Summarizer struct {
	model         Model
	maxInputChars int
	minLength     int
	maxLength     int
}

func NewSummarizer(model Model, cfg config.SummaryConfig) *Summarizer {
	return &Summarizer{
		model:         model,
		maxInputChars: cfg.MaxInputChars,
		minLength:     cfg.MinLength,
		maxLength:     cfg.MaxLength,
	}
}

// Summarize summarizes the first maxInputChars runes of text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	input := helper.TruncateRunes(text, s.maxInputChars)
	log.Debug().Int("chars", len([]rune(input))).Msg("Summarizing document")

	summary, err := s.model.Summarize(ctx, input, s.minLength, s.maxLength)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

// HFModel calls a Hugging Face summarization endpoint such as
// facebook/bart-large-cnn.
type HFModel struct {
	client *inference.Client
	url    string
}

func NewHFModel(client *inference.Client, url string) *HFModel {
	return &HFModel{client: client, url: url}
}

type parameters struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type response struct {
	SummaryText string `json:"summary_text"`
}

func (m *HFModel) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	var out []response
	req := request{Inputs: text, Parameters: parameters{MinLength: minLength, MaxLength: maxLength}}
	if err := m.client.PostJSON(ctx, m.url, req, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", ErrEmptySummary
	}
	return out[0].SummaryText, nil
}

// LLMModel asks a chat model for the summary.
type LLMModel struct {
	llm llmservice.Completer
}

func NewLLMModel(llm llmservice.Completer) *LLMModel {
	return &LLMModel{llm: llm}
}

func (m *LLMModel) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	return m.llm.Complete(ctx, fmt.Sprintf(models.SummaryPromptTemplate, text, minLength, maxLength))
}
