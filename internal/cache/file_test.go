package cache

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "indices"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	key := NewKey(digestOf("paris"), "all-minilm:l6-v2", "window:500:100")
	entry := NewEntry(key, "capital.pdf", "all-minilm:l6-v2", "window:500:100",
		[]string{"The capital of France is Paris."}, [][]float32{{0.1, 0.2, 0.3}})

	if err := store.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(store.Path(key)); err != nil {
		t.Errorf("entry file should exist: %v", err)
	}

	loaded, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Document != "capital.pdf" || loaded.Model != entry.Model || loaded.Dimensions != 3 {
		t.Errorf("loaded metadata = %+v", loaded)
	}
	if len(loaded.Chunks) != 1 || loaded.Chunks[0] != entry.Chunks[0] {
		t.Errorf("chunks = %v", loaded.Chunks)
	}
	if loaded.Embeddings[0][2] != 0.3 {
		t.Errorf("embeddings = %v", loaded.Embeddings)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(store.Path(key)), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFileStore_NotFound(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	_, err := store.Load(context.Background(), NewKey(digestOf("missing"), "m", "s"))
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	key := NewKey(digestOf("x"), "m", "s")

	if err := os.WriteFile(store.Path(key), []byte("not gob"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}
	if _, err := store.Load(context.Background(), key); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestFileStore_VersionMismatch(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	key := NewKey(digestOf("x"), "m", "s")

	old := NewEntry(key, "a.pdf", "m", "s", nil, nil)
	old.Version = 0
	f, err := os.Create(store.Path(key))
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	if err := gob.NewEncoder(f).Encode(old); err != nil {
		t.Fatalf("encoding: %v", err)
	}
	f.Close()

	if _, err := store.Load(context.Background(), key); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestFileStore_RejectsInvalidKey(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	entry := &Entry{Version: CurrentVersion, Key: "../escape"}
	if err := store.Save(context.Background(), entry); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

// Concurrent builds of one key race; the reader must still see a complete entry.
func TestFileStore_ConcurrentSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFileStore(t.TempDir())
	key := NewKey(digestOf("a.pdf"), "m", "s")

	const writers = 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			chunks := make([]string, 50)
			vectors := make([][]float32, 50)
			for i := range chunks {
				chunks[i] = fmt.Sprintf("writer %d chunk %d %s", w, i, strings.Repeat("x", 200))
				vectors[i] = []float32{float32(w), float32(i)}
			}
			if err := store.Save(ctx, NewEntry(key, "a.pdf", "m", "s", chunks, vectors)); err != nil {
				t.Errorf("writer %d: %v", w, err)
			}
		}(w)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			entry, err := store.Load(ctx, key)
			if err == ErrNotFound {
				continue
			}
			if err != nil {
				t.Errorf("reader saw a broken entry: %v", err)
				return
			}
			owner := entry.Embeddings[0][0]
			for i, v := range entry.Embeddings {
				if v[0] != owner {
					t.Errorf("entry mixes writers at chunk %d", i)
					return
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	if _, err := store.Load(ctx, key); err != nil {
		t.Errorf("final Load failed: %v", err)
	}
}

func TestFileStore_Reset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	var _ Resetter = store

	var keys []Key
	for _, text := range []string{"paris", "berlin"} {
		key := NewKey(digestOf(text), "m", "s")
		if err := store.Save(ctx, NewEntry(key, text+".pdf", "m", "s", []string{text}, [][]float32{{1}})); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		keys = append(keys, key)
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	n, err := store.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Reset removed %d entries, want 2", n)
	}
	for _, key := range keys {
		if _, err := store.Load(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%s) after reset = %v, want ErrNotFound", key, err)
		}
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestNewFileStore_CreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "indices")
	if _, err := NewFileStore(dir); err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("cache directory not created: %v", err)
	}
}
