package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.Provider.Type)
	assert.Equal(t, 600, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, 3000, cfg.RAG.ContextBudget)
	assert.Equal(t, 60, cfg.RAG.GenerationTimeoutSecs)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
provider:
  type: openai
  embedding_model: text-embedding-3-small
rag:
  chunk_size: 200
  chunk_overlap: 40
store:
  type: chromem
  path: /tmp/ragdb
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Provider.Type)
	assert.Equal(t, "text-embedding-3-small", cfg.Provider.EmbeddingModel)
	assert.Equal(t, 200, cfg.RAG.ChunkSize)
	assert.Equal(t, 40, cfg.RAG.ChunkOverlap)
	assert.Equal(t, "chromem", cfg.Store.Type)
	assert.Equal(t, "/tmp/ragdb", cfg.Store.Path)

	// Unset fields still pick up defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4, cfg.RAG.TopK)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_OverlapMustBeBelowChunkSize(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunk_size: 100
  chunk_overlap: 100
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestLoadConfig_UnknownStoreType(t *testing.T) {
	path := writeConfig(t, `
store:
  type: redis
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store type")
}

func TestLoadConfig_UnknownProviderType(t *testing.T) {
	path := writeConfig(t, `
provider:
  type: bedrock
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider type")
}
