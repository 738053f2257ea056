// Package cache persists built document indices.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("cache entry not found")
	ErrUnsupportedVersion = errors.New("unsupported cache entry version")
	ErrCorrupt            = errors.New("corrupt cache entry")
	ErrInvalidKey         = errors.New("invalid cache key")
)

const (
	// CurrentVersion is the entry format version. Increment it when Entry
	// changes incompatibly.
	CurrentVersion = 1

	digestLen   = 24
	modelTagLen = 12
)

// Key addresses a cache entry: the document content digest plus a tag for the
// embedding model and splitter that produced the vectors. Changing either
// model or splitter yields a different key, so stale vectors are never read.
type Key struct {
	Digest   string
	ModelTag string
}

// NewKey builds a key from a sha256 hex digest of the document bytes.
func NewKey(documentDigest, model, splitter string) Key {
	d := documentDigest
	if len(d) > digestLen {
		d = d[:digestLen]
	}
	return Key{Digest: d, ModelTag: ModelTag(model, splitter)}
}

// ModelTag hashes the embedding model name together with the splitter signature.
func ModelTag(model, splitter string) string {
	sum := sha256.Sum256([]byte(model + "|" + splitter))
	return hex.EncodeToString(sum[:])[:modelTagLen]
}

func (k Key) String() string {
	return k.Digest + "-" + k.ModelTag
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	digest, tag, ok := strings.Cut(s, "-")
	if !ok || len(digest) != digestLen || len(tag) != modelTagLen || !isHex(digest) || !isHex(tag) {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{Digest: digest, ModelTag: tag}, nil
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

// Entry is everything needed to answer questions about one document without
// re-reading it. Embeddings[i] is the vector of Chunks[i]; the search index is
// rebuilt from Embeddings on load.
type Entry struct {
	Version    int
	Key        string
	Document   string
	Model      string
	Splitter   string
	Dimensions int
	CreatedAt  time.Time
	Chunks     []string
	Embeddings [][]float32
}

// NewEntry fills in the bookkeeping fields of a freshly built entry.
func NewEntry(key Key, document, model, splitter string, chunks []string, embeddings [][]float32) *Entry {
	dims := 0
	if len(embeddings) > 0 {
		dims = len(embeddings[0])
	}
	return &Entry{
		Version:    CurrentVersion,
		Key:        key.String(),
		Document:   document,
		Model:      model,
		Splitter:   splitter,
		Dimensions: dims,
		CreatedAt:  time.Now().UTC(),
		Chunks:     chunks,
		Embeddings: embeddings,
	}
}

// Validate checks the chunk/embedding alignment and vector widths.
func (e *Entry) Validate() error {
	if e.Version != CurrentVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, e.Version, CurrentVersion)
	}
	if len(e.Chunks) != len(e.Embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings", ErrCorrupt, len(e.Chunks), len(e.Embeddings))
	}
	for i, v := range e.Embeddings {
		if len(v) != e.Dimensions {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrCorrupt, i, len(v), e.Dimensions)
		}
	}
	return nil
}

// Store reads and publishes entries. Save must publish atomically: a
// concurrent Load sees either the previous entry or the new one in full.
type Store interface {
	Load(ctx context.Context, key Key) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	Close() error
}

// Resetter is implemented by stores that can drop every entry at once.
// Reset reports how many entries were removed, or -1 when the backend
// cannot tell.
type Resetter interface {
	Reset(ctx context.Context) (int, error)
}
