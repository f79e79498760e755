package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Hashing.Dimension)
	assert.Equal(t, "openai", cfg.LLM.Type)
	assert.Equal(t, 500, cfg.LLM.OpenAI.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.OpenAI.Temperature, 1e-6)
	assert.Equal(t, "fixed", cfg.Chunker.Type)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, "file", cfg.VectorStore.Backend)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 6000, cfg.RAG.MaxContextChars)
	assert.Equal(t, -1.0, cfg.RAG.MinScoreValue())
	assert.True(t, cfg.Ingest.CleanTextEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
    dimensions: 1024
chunker:
  type: sentence
  sentences_per_chunk: 4
  overlap_sentences: 1
vector_store:
  backend: bolt
ingest:
  clean_text: false
rag:
  top_k: 8
  min_score: 0.25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 1024, cfg.Embedder.OpenAI.Dimensions)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 64, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, "sentence", cfg.Chunker.Type)
	assert.Equal(t, 4, cfg.Chunker.SentencesPerChunk)
	assert.Equal(t, "bolt", cfg.VectorStore.Backend)
	assert.Equal(t, "data", cfg.VectorStore.Dir)
	assert.False(t, cfg.Ingest.CleanTextEnabled())
	assert.Equal(t, 8, cfg.RAG.TopK)
	assert.InDelta(t, 0.25, cfg.RAG.MinScoreValue(), 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvUploadDir, "/srv/uploads")
	t.Setenv(EnvStoreDir, "/srv/store")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/uploads", cfg.Ingest.UploadDir)
	assert.Equal(t, "/srv/store", cfg.VectorStore.Dir)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.RAG.TopK = 3
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docrag", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "word2vec" }},
		{"unknown llm", func(c *AppConfig) { c.LLM.Type = "magic" }},
		{"overlap too large", func(c *AppConfig) { c.Chunker.Overlap = 1000 }},
		{"negative overlap", func(c *AppConfig) { c.Chunker.Overlap = -1 }},
		{"unknown chunker", func(c *AppConfig) { c.Chunker.Type = "paragraph" }},
		{"unknown backend", func(c *AppConfig) { c.VectorStore.Backend = "qdrant" }},
		{"missing store dir", func(c *AppConfig) { c.VectorStore.Dir = "" }},
		{"zero top_k", func(c *AppConfig) { c.RAG.TopK = 0 }},
		{"min_score out of range", func(c *AppConfig) { v := 2.0; c.RAG.MinScore = &v }},
		{"sentence overlap", func(c *AppConfig) {
			c.Chunker.Type = "sentence"
			c.Chunker.OverlapSentences = c.Chunker.SentencesPerChunk
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	mem := defaultConfig()
	mem.VectorStore = VectorStoreConfig{Backend: "memory"}
	assert.NoError(t, mem.Validate())
}
