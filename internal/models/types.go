package models

// Passage is a retrieved chunk of an indexed document.
type Passage struct {
	Position int     `json:"position"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
	Score    float64 `json:"score"`
	Document string  `json:"document,omitempty"`
}

// QueryResponse is what a question about a document produces.
type QueryResponse struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Found       bool      `json:"found"`
	Answer      string    `json:"answer,omitempty"`
	Score       float64   `json:"score,omitempty"`
	Source      string    `json:"source,omitempty"`
	Highlighted string    `json:"highlighted,omitempty"`
	Candidates  []Passage `json:"candidates"`
}

// IndexResult describes a document after it has been indexed or loaded from the cache.
type IndexResult struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Chunks   int    `json:"chunks"`
	Cached   bool   `json:"cached"`
	Model    string `json:"model"`
	Splitter string `json:"splitter"`
}
