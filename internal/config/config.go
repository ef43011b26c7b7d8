package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProviderConfig selects and configures the embedding/generation backend.
type ProviderConfig struct {
	Type           string `yaml:"type"` // "ollama" or "openai"
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	EmbeddingModel string `yaml:"embedding_model"`
	InferenceModel string `yaml:"inference_model"`
}

// RAGConfig holds chunking and retrieval parameters.
type RAGConfig struct {
	ChunkSize             int  `yaml:"chunk_size"`    // tokens per chunk
	ChunkOverlap          int  `yaml:"chunk_overlap"` // tokens shared between adjacent chunks
	TopK                  int  `yaml:"top_k"`
	ContextBudget         int  `yaml:"context_budget"` // token budget for assembled context
	MinTextChars          int  `yaml:"min_text_chars"`
	MaxTags               int  `yaml:"max_tags"`
	GenerationTimeoutSecs int  `yaml:"generation_timeout_secs"`
	UseTiktoken           bool `yaml:"use_tiktoken"`
}

// StoreConfig selects the index persistence backend.
type StoreConfig struct {
	Type  string `yaml:"type"` // "memory", "chromem" or "postgres"
	Path  string `yaml:"path"` // chromem database directory
	DSN   string `yaml:"dsn"`  // postgres connection string
	Debug bool   `yaml:"debug"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	RAG      RAGConfig      `yaml:"rag"`
	Store    StoreConfig    `yaml:"store"`
}

// LoadConfig reads a YAML config from path. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size): got %d/%d", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	switch c.Store.Type {
	case "memory", "chromem", "postgres":
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}
	switch c.Provider.Type {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown provider type: %s", c.Provider.Type)
	}
	return nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "ollama"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "http://localhost:11434"
	}
	if cfg.Provider.EmbeddingModel == "" {
		cfg.Provider.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Provider.InferenceModel == "" {
		cfg.Provider.InferenceModel = "llama3.1"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 600
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 100
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.RAG.ContextBudget == 0 {
		cfg.RAG.ContextBudget = 3000
	}
	if cfg.RAG.MinTextChars == 0 {
		cfg.RAG.MinTextChars = 10
	}
	if cfg.RAG.MaxTags == 0 {
		cfg.RAG.MaxTags = 5
	}
	if cfg.RAG.GenerationTimeoutSecs == 0 {
		cfg.RAG.GenerationTimeoutSecs = 60
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./ragdb"
	}
}
