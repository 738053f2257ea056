// Package rag ties the models and stores together: it indexes documents,
// answers questions about them and summarizes them.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"document-qa/internal/cache"
	"document-qa/internal/chromemdb"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/qa"
	"document-qa/internal/rerank"
	"document-qa/internal/summarize"
	"document-qa/internal/vectorindex"
)

var (
	ErrModelMismatch   = errors.New("index was built with a different embedding model or splitter")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrLibraryDisabled = errors.New("library is not enabled")
)

// Models are the black-box models the service calls.
type Models struct {
	Embedder   embedding.Embedder
	Reranker   rerank.Reranker
	Extractor  qa.Extractor
	Summarizer *summarize.Summarizer
}

// RAG is created once at startup and shared by every request.
type RAG struct {
	models   Models
	splitter parser.Splitter
	store    cache.Store
	library  *chromemdb.Library
	topK     int
	topN     int
}

// NewRAG builds the service. library may be nil.
func NewRAG(m Models, store cache.Store, library *chromemdb.Library, cfg *config.Config) (*RAG, error) {
	if m.Embedder == nil || m.Reranker == nil || m.Extractor == nil {
		return nil, errors.New("embedder, reranker and extractor are required")
	}
	splitter, err := parser.NewSplitter(cfg.RAG)
	if err != nil {
		return nil, err
	}
	return &RAG{
		models:   m,
		splitter: splitter,
		store:    store,
		library:  library,
		topK:     cfg.RAG.TopK,
		topN:     cfg.RAG.TopN,
	}, nil
}

// Library returns the cross-document library, nil when disabled.
func (r *RAG) Library() *chromemdb.Library {
	return r.library
}

func (r *RAG) Close() error {
	return r.store.Close()
}

// Index is a searchable, immutable index over one document.
type Index struct {
	Key      cache.Key
	Document string
	Model    string
	Splitter string
	Chunks   []string
	Cached   bool
	flat     *vectorindex.FlatIndex
}

func (idx *Index) Result() models.IndexResult {
	return models.IndexResult{
		Key:      idx.Key.String(),
		Name:     idx.Document,
		Chunks:   len(idx.Chunks),
		Cached:   idx.Cached,
		Model:    idx.Model,
		Splitter: idx.Splitter,
	}
}

func (r *RAG) modelTag() string {
	return cache.ModelTag(r.models.Embedder.ModelName(), r.splitter.Signature())
}

func newIndex(key cache.Key, entry *cache.Entry, cached bool) (*Index, error) {
	flat, err := vectorindex.Build(entry.Embeddings)
	if err != nil {
		return nil, err
	}
	return &Index{
		Key:      key,
		Document: entry.Document,
		Model:    entry.Model,
		Splitter: entry.Splitter,
		Chunks:   entry.Chunks,
		Cached:   cached,
		flat:     flat,
	}, nil
}

// IndexDocument returns the index for doc, loading it from the cache when an
// entry exists and building and publishing it otherwise.
func (r *RAG) IndexDocument(ctx context.Context, doc *parser.Document) (*Index, error) {
	model := r.models.Embedder.ModelName()
	signature := r.splitter.Signature()
	key := cache.NewKey(doc.Digest, model, signature)

	entry, err := r.store.Load(ctx, key)
	switch {
	case err == nil:
		log.Info().Str("document", doc.Name).Str("key", key.String()).Int("chunks", len(entry.Chunks)).Msg("Loaded index from cache")
		idx, err := newIndex(key, entry, true)
		if err != nil {
			return nil, err
		}
		// the library may have been enabled or reset since the entry was built
		r.addToLibrary(ctx, key, entry.Document, entry.Chunks, entry.Embeddings)
		return idx, nil
	case !errors.Is(err, cache.ErrNotFound):
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}

	start := time.Now()
	chunks, err := r.splitter.Split(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", doc.Name, err)
	}
	vectors, err := embedding.GenerateEmbedding(ctx, r.models.Embedder, chunks)
	if err != nil {
		return nil, err
	}

	entry = cache.NewEntry(key, doc.Name, model, signature, chunks, vectors)
	idx, err := newIndex(key, entry, false)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, entry); err != nil {
		return nil, err
	}
	log.Info().
		Str("document", doc.Name).
		Str("key", key.String()).
		Int("chunks", len(chunks)).
		Dur("took", time.Since(start)).
		Msg("Indexed document")

	r.addToLibrary(ctx, key, doc.Name, chunks, vectors)
	return idx, nil
}

// addToLibrary upserts the chunks into the library when it is enabled. A
// failure is logged and never fails indexing.
func (r *RAG) addToLibrary(ctx context.Context, key cache.Key, document string, chunks []string, vectors [][]float32) {
	if r.library == nil {
		return
	}
	if err := r.library.AddChunks(ctx, key.String(), document, chunks, vectors); err != nil {
		log.Warn().Err(err).Str("document", document).Msg("Could not add document to library")
	}
}

// Open loads a previously built index by its key string. The key must have
// been produced by the running embedding model and splitter.
func (r *RAG) Open(ctx context.Context, keyString string) (*Index, error) {
	key, err := cache.ParseKey(keyString)
	if err != nil {
		return nil, err
	}
	if key.ModelTag != r.modelTag() {
		return nil, fmt.Errorf("%w: key %s", ErrModelMismatch, key)
	}
	entry, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry.Model != r.models.Embedder.ModelName() {
		return nil, fmt.Errorf("%w: entry built with %s", ErrModelMismatch, entry.Model)
	}
	return newIndex(key, entry, true)
}

// Retrieve returns the top N passages for query: the K nearest chunks by
// vector distance, re-ranked by the cross-encoder. An empty index returns
// nothing without calling any model.
func (r *RAG) Retrieve(ctx context.Context, idx *Index, query string) ([]models.Passage, error) {
	if idx.flat.Len() == 0 {
		return nil, nil
	}

	qv, err := r.models.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	neighbors, err := idx.flat.Search(qv, r.topK)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Passage, len(neighbors))
	for i, n := range neighbors {
		candidates[i] = models.Passage{
			Position: n.Position,
			Content:  idx.Chunks[n.Position],
			Distance: n.Distance,
			Document: idx.Document,
		}
	}
	return rerank.Rerank(ctx, r.models.Reranker, query, candidates, r.topN)
}

// Answer runs extractive QA over passages and builds the response. Passages
// are returned as candidates whether or not an answer was found.
func (r *RAG) Answer(ctx context.Context, query string, passages []models.Passage) (*models.QueryResponse, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	resp := &models.QueryResponse{ID: id, Query: query, Candidates: passages}
	if resp.Candidates == nil {
		resp.Candidates = []models.Passage{}
	}

	best, found, err := qa.Answer(ctx, r.models.Extractor, query, passages)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Info().Str("id", id).Int("passages", len(passages)).Msg("No answer found")
		return resp, nil
	}

	resp.Found = true
	resp.Answer = best.Span.Answer
	resp.Score = best.Span.Score
	resp.Source = best.Passage.Content
	resp.Highlighted = helper.Highlight(best.Passage.Content, best.Span.Answer)
	log.Info().Str("id", id).Str("answer", resp.Answer).Float64("score", resp.Score).Int("position", best.Passage.Position).Msg("Answer found")
	return resp, nil
}

// Query answers a question about one indexed document.
func (r *RAG) Query(ctx context.Context, idx *Index, query string) (*models.QueryResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	passages, err := r.Retrieve(ctx, idx, query)
	if err != nil {
		return nil, err
	}
	return r.Answer(ctx, query, passages)
}

// Ask indexes doc if needed and answers query about it.
func (r *RAG) Ask(ctx context.Context, doc *parser.Document, query string) (*models.QueryResponse, error) {
	idx, err := r.IndexDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, idx, query)
}

// SearchLibrary answers query from every document in the library.
func (r *RAG) SearchLibrary(ctx context.Context, query string) (*models.QueryResponse, error) {
	if r.library == nil {
		return nil, ErrLibraryDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	qv, err := r.models.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	candidates, err := r.library.Search(ctx, qv, r.topK)
	if err != nil {
		return nil, err
	}
	passages, err := rerank.Rerank(ctx, r.models.Reranker, query, candidates, r.topN)
	if err != nil {
		return nil, err
	}
	return r.Answer(ctx, query, passages)
}

// Summarize summarizes the beginning of the document text.
func (r *RAG) Summarize(ctx context.Context, doc *parser.Document) (string, error) {
	if r.models.Summarizer == nil {
		return "", errors.New("no summarizer configured")
	}
	return r.models.Summarizer.Summarize(ctx, doc.Text)
}
