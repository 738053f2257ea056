package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChunkSize      = 500 // runes
	DefaultChunkOverlap   = 100 // runes
	DefaultTopK           = 10
	DefaultTopN           = 5
	DefaultCacheDir       = "./indices"
	DefaultSplitter       = "window"
	DefaultServerAddr     = ":1323"
	DefaultCollection     = "documents"
	DefaultLibraryPath    = "./chromemdb"
	DefaultSummaryInput   = 1024
	DefaultSummaryMin     = 30
	DefaultSummaryMax     = 130
	DefaultInferenceRPS   = 5
	DefaultInferenceBurst = 1
	DefaultTimeout        = 60 * time.Second

	// HFInferenceURL is prefixed to a model id when qa.url or summarize.url is unset.
	HFInferenceURL = "https://api-inference.huggingface.co/models/"
)

type Config struct {
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	ChatLLM   LLMConfig       `yaml:"chat_llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Rerank    ModelConfig     `yaml:"rerank"`
	QA        ModelConfig     `yaml:"qa"`
	Summarize SummaryConfig   `yaml:"summarize"`
	Inference InferenceConfig `yaml:"inference"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Library   LibraryConfig   `yaml:"library"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// LLMConfig points at an Ollama server or an OpenAI compatible endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"` // ollama | openai
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Splitter     string `yaml:"splitter"` // window | recursive
	TopK         int    `yaml:"top_k"`
	TopN         int    `yaml:"top_n"`
	CacheDir     string `yaml:"cache_dir"`
	BatchSize    int    `yaml:"batch_size"`
}

// ModelConfig selects how a black-box model is reached: "http" for an
// inference endpoint, "llm" for a prompt against chat_llm.
type ModelConfig struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
}

type SummaryConfig struct {
	ModelConfig   `yaml:",inline"`
	MaxInputChars int `yaml:"max_input_chars"`
	MinLength     int `yaml:"min_length"`
	MaxLength     int `yaml:"max_length"`
}

type InferenceConfig struct {
	Token             string        `yaml:"token"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // file | postgres
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // pgdriver | pq
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LibraryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads a YAML config file. A .env file next to the working
// directory is loaded first so that ${VAR} references in the YAML resolve.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, expanding environment references and
// applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = "all-minilm:l6-v2"
	}
	if c.ChatLLM.Provider == "" {
		c.ChatLLM.Provider = c.EmbedLLM.Provider
	}
	if c.ChatLLM.BaseURL == "" {
		c.ChatLLM.BaseURL = c.EmbedLLM.BaseURL
	}

	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = DefaultChunkSize
	}
	// zero means unset; a negative overlap asks for none
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = DefaultChunkOverlap
	} else if c.RAG.ChunkOverlap < 0 {
		c.RAG.ChunkOverlap = 0
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkOverlap = c.RAG.ChunkSize / 2
	}
	if c.RAG.Splitter == "" {
		c.RAG.Splitter = DefaultSplitter
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = DefaultTopK
	}
	if c.RAG.TopN <= 0 {
		c.RAG.TopN = DefaultTopN
	}
	if c.RAG.CacheDir == "" {
		c.RAG.CacheDir = DefaultCacheDir
	}

	if c.Rerank.Backend == "" {
		c.Rerank.Backend = "http"
	}
	if c.Rerank.Model == "" {
		c.Rerank.Model = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	if c.QA.Backend == "" {
		c.QA.Backend = "http"
	}
	if c.QA.Model == "" {
		c.QA.Model = "deepset/roberta-base-squad2"
	}
	if c.Summarize.Backend == "" {
		c.Summarize.Backend = "http"
	}
	if c.Summarize.Model == "" {
		c.Summarize.Model = "facebook/bart-large-cnn"
	}
	if c.QA.Backend == "http" && c.QA.URL == "" {
		c.QA.URL = HFInferenceURL + c.QA.Model
	}
	if c.Summarize.Backend == "http" && c.Summarize.URL == "" {
		c.Summarize.URL = HFInferenceURL + c.Summarize.Model
	}
	if c.Summarize.MaxInputChars <= 0 {
		c.Summarize.MaxInputChars = DefaultSummaryInput
	}
	if c.Summarize.MinLength <= 0 {
		c.Summarize.MinLength = DefaultSummaryMin
	}
	if c.Summarize.MaxLength <= 0 {
		c.Summarize.MaxLength = DefaultSummaryMax
	}

	if c.Inference.RequestsPerSecond <= 0 {
		c.Inference.RequestsPerSecond = DefaultInferenceRPS
	}
	if c.Inference.Burst <= 0 {
		c.Inference.Burst = DefaultInferenceBurst
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = DefaultTimeout
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Library.Path == "" {
		c.Library.Path = DefaultLibraryPath
	}
	if c.Library.Collection == "" {
		c.Library.Collection = DefaultCollection
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.RAG.Splitter {
	case "window", "recursive":
	default:
		return fmt.Errorf("unknown splitter %q", c.RAG.Splitter)
	}
	switch c.Store.Backend {
	case "file":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if k := c.Library.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("library.encryption_key must be 32 bytes, got %d", len(k))
	}
	for name, m := range map[string]ModelConfig{
		"rerank":    c.Rerank,
		"qa":        c.QA,
		"summarize": c.Summarize.ModelConfig,
	} {
		switch m.Backend {
		case "llm":
		case "http":
			if err := checkEndpoint(m.URL); err != nil {
				return fmt.Errorf("%s.url: %w", name, err)
			}
		default:
			return fmt.Errorf("%s: unknown backend %q", name, m.Backend)
		}
	}
	return nil
}

// checkEndpoint requires an absolute http(s) URL.
func checkEndpoint(raw string) error {
	if raw == "" {
		return errors.New("required for the http backend")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}
