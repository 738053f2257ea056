package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"document-qa/internal/config"
	"document-qa/internal/inference"
)

type recordingModel struct {
	reply    string
	err      error
	text     string
	min, max int
}

func (r *recordingModel) Summarize(_ context.Context, text string, minLength, maxLength int) (string, error) {
	r.text, r.min, r.max = text, minLength, maxLength
	return r.reply, r.err
}

func summaryConfig(maxInput int) config.SummaryConfig {
	return config.SummaryConfig{MaxInputChars: maxInput, MinLength: 30, MaxLength: 130}
}

func TestSummarize(t *testing.T) {
	model := &recordingModel{reply: "  A short summary.\n"}
	s := NewSummarizer(model, summaryConfig(10))

	got, err := s.Summarize(context.Background(), "ééééééééééééééé and more")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "A short summary." {
		t.Errorf("summary = %q", got)
	}
	if model.text != "éééééééééé" {
		t.Errorf("input = %q, want the first 10 runes", model.text)
	}
	if model.min != 30 || model.max != 130 {
		t.Errorf("length bounds = %d/%d", model.min, model.max)
	}
}

func TestSummarize_Errors(t *testing.T) {
	s := NewSummarizer(&recordingModel{reply: "x"}, summaryConfig(100))
	if _, err := s.Summarize(context.Background(), " \n\t"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}

	boom := errors.New("boom")
	s = NewSummarizer(&recordingModel{err: boom}, summaryConfig(100))
	if _, err := s.Summarize(context.Background(), "text"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped model error, got %v", err)
	}

	s = NewSummarizer(&recordingModel{reply: "  "}, summaryConfig(100))
	if _, err := s.Summarize(context.Background(), "text"); !errors.Is(err, ErrEmptySummary) {
		t.Errorf("expected ErrEmptySummary, got %v", err)
	}
}

func TestHFModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Parameters.MinLength != 30 || req.Parameters.MaxLength != 130 || req.Parameters.DoSample {
			t.Errorf("parameters = %+v", req.Parameters)
		}
		w.Write([]byte(`[{"summary_text":"Paris is the capital."}]`))
	}))
	defer server.Close()

	client := inference.NewClient(config.InferenceConfig{RequestsPerSecond: 100, Burst: 5, Timeout: 5 * time.Second})
	got, err := NewHFModel(client, server.URL).Summarize(context.Background(), "long text", 30, 130)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "Paris is the capital." {
		t.Errorf("summary = %q", got)
	}
}

type promptRecorder struct{ prompt string }

func (p *promptRecorder) Complete(_ context.Context, prompt string) (string, error) {
	p.prompt = prompt
	return "summary", nil
}

func TestLLMModel(t *testing.T) {
	rec := &promptRecorder{}
	if _, err := NewLLMModel(rec).Summarize(context.Background(), "the document body", 30, 130); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if !strings.Contains(rec.prompt, "the document body") || !strings.Contains(rec.prompt, "30 to 130") {
		t.Errorf("prompt = %q", rec.prompt)
	}
}
