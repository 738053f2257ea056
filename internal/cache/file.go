package cache

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
)

const fileExt = ".gob"

// FileStore keeps one gob file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := helper.CreateFolder(dir); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file an entry for key is stored in.
func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.dir, key.String()+fileExt)
}

func (s *FileStore) Load(_ context.Context, key Key) (*Entry, error) {
	f, err := os.Open(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening cache entry: %w", err)
	}
	defer f.Close()

	var entry Entry
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, key, err)
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if entry.Key != key.String() {
		return nil, fmt.Errorf("%w: file for %s holds %s", ErrCorrupt, key, entry.Key)
	}
	return &entry, nil
}

// Save writes to a temp file in the same directory, then renames it over
// the final path.
func (s *FileStore) Save(_ context.Context, entry *Entry) error {
	key, err := ParseKey(entry.Key)
	if err != nil {
		return err
	}
	finalPath := s.Path(key)

	f, err := os.CreateTemp(s.dir, key.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := f.Name()

	if err := gob.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	log.Debug().Str("key", entry.Key).Str("path", finalPath).Int("chunks", len(entry.Chunks)).Msg("Saved cache entry")
	return nil
}

// Reset removes every published entry. Temp files of in-flight saves are
// left alone.
func (s *FileStore) Reset(_ context.Context) (int, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+fileExt))
	if err != nil {
		return 0, err
	}
	for i, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return i, fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return len(paths), nil
}

func (s *FileStore) Close() error {
	return nil
}
