package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"document-qa/internal/config"
)

func newTestClient(token string) *Client {
	return NewClient(config.InferenceConfig{Token: token, RequestsPerSecond: 1000, Burst: 10, Timeout: 5 * time.Second})
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"echo": in["say"]})
	}))
	defer server.Close()

	var out map[string]string
	err := newTestClient("hf_test").PostJSON(context.Background(), server.URL, map[string]string{"say": "hi"}, &out)
	if err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if out["echo"] != "hi" {
		t.Errorf("echo = %q, want hi", out["echo"])
	}
}

func TestPostJSON_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header should be absent without a token")
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var out map[string]any
	if err := newTestClient("").PostJSON(context.Background(), server.URL, struct{}{}, &out); err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
}

func TestPostJSON_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, "", func(err error) bool { return errors.Is(err, ErrAuth) }},
		{"rate limited", http.StatusTooManyRequests, "", func(err error) bool { return errors.Is(err, ErrRateLimited) }},
		{"server error", http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == 503 && apiErr.Body == `{"error":"Model is currently loading"}`
		}},
		{"bad json", http.StatusOK, "not json", func(err error) bool { return err != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var out map[string]any
			err := newTestClient("").PostJSON(context.Background(), server.URL, struct{}{}, &out)
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPostJSON_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]any
	if err := newTestClient("").PostJSON(ctx, "http://127.0.0.1:1", struct{}{}, &out); err == nil {
		t.Error("expected error for canceled context")
	}
}
