package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// metadata keys stored with every chunk
const (
	metaKey      = "key"
	metaDocument = "document"
	metaPosition = "position"
)

var ErrEmptyQuery = errors.New("query embedding is required")

// Library is a cross-document chunk collection. Every indexed document is
// added to it so a question can be asked across all of them at once.
type Library struct {
	db            *chromem.DB
	collection    *chromem.Collection
	name          string
	compress      bool
	encryptionKey string
}

// NewLibrary opens (or creates) the configured collection, in memory or
// persisted under cfg.Path.
func NewLibrary(cfg config.LibraryConfig) (*Library, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	l := &Library{
		db:            db,
		name:          cfg.Collection,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
	}
	if err := l.openCollection(); err != nil {
		return nil, err
	}
	log.Debug().Str("collection", l.name).Int("documents", l.Count()).Bool("in_memory", cfg.InMemory).Msg("Library opened")
	return l, nil
}

// Embeddings are always supplied by the caller, so the collection never
// needs an embedding function of its own.
func (l *Library) openCollection() error {
	c, err := l.db.GetOrCreateCollection(l.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	l.collection = c
	return nil
}

// Count returns the number of chunks in the collection.
func (l *Library) Count() int {
	return l.collection.Count()
}

// AddChunks upserts the chunks of one indexed document. IDs are
// "<key>-<position>", so adding the same document again replaces its chunks.
func (l *Library) AddChunks(ctx context.Context, key, document string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%d chunks but %d embeddings", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s-%d", key, i),
			Content: chunk,
			Metadata: map[string]string{
				metaKey:      key,
				metaDocument: document,
				metaPosition: strconv.Itoa(i),
			},
			Embedding: embeddings[i],
		}
	}

	if err := l.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Str("key", key).Int("chunks", len(docs)).Msg("Added chunks to library")
	return nil
}

// Search returns up to k chunks nearest to embedding by cosine similarity,
// most similar first. Distance is reported as 1 - similarity.
func (l *Library) Search(ctx context.Context, embedding []float32, k int) ([]models.Passage, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyQuery
	}
	n := min(k, l.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := l.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	passages := make([]models.Passage, len(results))
	for i, r := range results {
		pos, err := strconv.Atoi(r.Metadata[metaPosition])
		if err != nil {
			pos = -1
		}
		passages[i] = models.Passage{
			Position: pos,
			Content:  r.Content,
			Distance: 1 - r.Similarity,
			Document: r.Metadata[metaDocument],
		}
	}
	return passages, nil
}

// Export writes the collection to path, encrypted when an encryption key is
// configured.
func (l *Library) Export(path string) error {
	log.Debug().Str("collection", l.name).Str("path", path).Bool("compress", l.compress).Msg("Exporting library")
	if err := l.db.ExportToFile(path, l.compress, l.encryptionKey, l.name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import replaces the collection with the one stored in path.
func (l *Library) Import(path string) error {
	log.Debug().Str("collection", l.name).Str("path", path).Msg("Importing library")
	if err := l.db.ImportFromFile(path, l.encryptionKey, l.name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	// the import swaps in a new collection object
	return l.openCollection()
}

// Reset drops every chunk from the collection.
func (l *Library) Reset() error {
	if err := l.db.DeleteCollection(l.name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return l.openCollection()
}
