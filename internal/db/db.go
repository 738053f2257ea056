// Package db stores cache entries in Postgres through bun.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/cache"
	"document-qa/internal/config"
)

type Entry struct {
	bun.BaseModel `bun:"table:cache_entries,alias:e"`
	CacheKey      string    `bun:"cache_key,pk"`
	Version       int       `bun:"version,notnull"`
	Document      string    `bun:"document,notnull"`
	Model         string    `bun:"model,notnull"`
	Splitter      string    `bun:"splitter,notnull"`
	Dimensions    int       `bun:"dimensions,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

type Chunk struct {
	bun.BaseModel `bun:"table:cache_chunks,alias:c"`
	CacheKey      string    `bun:"cache_key,pk"`
	Position      int       `bun:"position,pk"`
	Content       string    `bun:"content,notnull"`
	Embedding     []float32 `bun:"embedding,array"`
}

// ConnectDB opens a connection pool with the configured driver: bun's
// pgdriver (default) or lib/pq.
func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "", "pgdriver":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*Entry)(nil), (*Chunk)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*Chunk)(nil), (*Entry)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("dropping table: %w", err)
		}
	}
	return nil
}

// Store is a cache.Store backed by two tables. Save and Load each run in a
// single transaction, so readers never see a half-written entry.
type Store struct {
	db *bun.DB
}

// NewStore wraps db and makes sure the tables exist.
func NewStore(ctx context.Context, db *bun.DB) (*Store, error) {
	if err := InitDB(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Open connects with cfg and returns a ready store.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(ctx, NewDB(sqldb, cfg.Debug))
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Load(ctx context.Context, key cache.Key) (*cache.Entry, error) {
	var (
		row    Entry
		chunks []Chunk
	)
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := s.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&row).Where("cache_key = ?", key.String()).Scan(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(&chunks).Where("cache_key = ?", key.String()).Order("position ASC").Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading cache entry %s: %w", key, err)
	}

	entry := toEntry(&row, chunks)
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Save replaces any previous entry under the same key.
func (s *Store) Save(ctx context.Context, entry *cache.Entry) error {
	row, chunks := fromEntry(entry)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Chunk)(nil)).Where("cache_key = ?", row.CacheKey).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*Entry)(nil)).Where("cache_key = ?", row.CacheKey).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&chunks).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving cache entry %s: %w", entry.Key, err)
	}
	log.Debug().Str("key", entry.Key).Int("chunks", len(chunks)).Msg("Saved cache entry to postgres")
	return nil
}

// Reset drops and recreates both tables.
func (s *Store) Reset(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Entry)(nil)).Count(ctx)
	if err != nil {
		n = -1
	}
	if err := DropTables(ctx, s.db); err != nil {
		return 0, err
	}
	if err := InitDB(ctx, s.db); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func fromEntry(e *cache.Entry) (*Entry, []Chunk) {
	row := &Entry{
		CacheKey:   e.Key,
		Version:    e.Version,
		Document:   e.Document,
		Model:      e.Model,
		Splitter:   e.Splitter,
		Dimensions: e.Dimensions,
		CreatedAt:  e.CreatedAt,
	}
	chunks := make([]Chunk, len(e.Chunks))
	for i, content := range e.Chunks {
		chunks[i] = Chunk{CacheKey: e.Key, Position: i, Content: content}
		if i < len(e.Embeddings) {
			chunks[i].Embedding = e.Embeddings[i]
		}
	}
	return row, chunks
}

func toEntry(row *Entry, chunks []Chunk) *cache.Entry {
	e := &cache.Entry{
		Version:    row.Version,
		Key:        row.CacheKey,
		Document:   row.Document,
		Model:      row.Model,
		Splitter:   row.Splitter,
		Dimensions: row.Dimensions,
		CreatedAt:  row.CreatedAt,
	}
	if len(chunks) == 0 {
		return e
	}
	e.Chunks = make([]string, len(chunks))
	e.Embeddings = make([][]float32, len(chunks))
	for i, c := range chunks {
		e.Chunks[i] = c.Content
		e.Embeddings[i] = c.Embedding
	}
	return e
}
