package qa

import (
	"context"

	"document-qa/internal/inference"
)

// HFExtractor calls a Hugging Face question-answering endpoint, e.g. one
// serving deepset/roberta-base-squad2.
type HFExtractor struct {
	client *inference.Client
	url    string
}

func NewHFExtractor(client *inference.Client, url string) *HFExtractor {
	return &HFExtractor{client: client, url: url}
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

type qaResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

func (e *HFExtractor) Extract(ctx context.Context, question, passage string) (Span, error) {
	var resp qaResponse
	req := qaRequest{Inputs: qaInputs{Question: question, Context: passage}}
	if err := e.client.PostJSON(ctx, e.url, req, &resp); err != nil {
		return Span{}, err
	}
	return Span{Answer: resp.Answer, Score: resp.Score, Start: resp.Start, End: resp.End}, nil
}
