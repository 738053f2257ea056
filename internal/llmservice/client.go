package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/helper"
)

var ErrEmptyResponse = errors.New("llm returned no choices")

// Completer answers a single prompt with text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client sends prompts to the configured chat model.
type Client struct {
	llm   llms.Model
	model string
}

// NewClient creates a chat client for an Ollama or OpenAI compatible endpoint.
func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating chat client")

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case "", "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err = ollama.New(opts...)
	case "openai":
		token := strings.TrimPrefix(llmConfig.Key, "Bearer ")
		if token == "" {
			token = "EMPTY"
		}
		opts := []openai.Option{openai.WithToken(token), openai.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s: %w", llmConfig.Provider, err)
	}
	return &Client{llm: llm, model: llmConfig.Model}, nil
}

// NewClientFromModel wraps an existing langchaingo model.
func NewClientFromModel(llm llms.Model, model string) *Client {
	return &Client{llm: llm, model: model}
}

// Complete sends prompt as one human message at temperature 0 and returns
// the first choice with any <think> block removed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := GenerateContent(ctx, c.llm, nil, msgContent, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return helper.StripThinking(res.Choices[0].Content), nil
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, tools []llms.Tool, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	return llm.GenerateContent(ctx, messages, opts...)
}
