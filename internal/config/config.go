package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvUploadDir = "DOCRAG_UPLOAD_DIR"
	EnvStoreDir  = "DOCRAG_STORE_DIR"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions,omitempty"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	Concurrency       int     `yaml:"concurrency"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// HashingEmbedderConfig configures the offline hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// OpenAILLMConfig holds configuration for the chat completions client.
type OpenAILLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// LLMConfig selects and configures the answer generator.
type LLMConfig struct {
	Type   string           `yaml:"type"`
	OpenAI *OpenAILLMConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects the persistence backend of the vector store.
type VectorStoreConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	UploadDir string `yaml:"upload_dir"`
	CleanText *bool  `yaml:"clean_text,omitempty"`
}

// CleanTextEnabled reports whether extracted text is normalised; defaults to true.
func (c IngestConfig) CleanTextEnabled() bool {
	return c.CleanText == nil || *c.CleanText
}

// RAGConfig tunes retrieval and generation.
type RAGConfig struct {
	TopK                  int      `yaml:"top_k"`
	MaxContextChars       int      `yaml:"max_context_chars"`
	MinScore              *float64 `yaml:"min_score,omitempty"`
	EmbedTimeoutSecs      int      `yaml:"embed_timeout_secs"`
	GenerationTimeoutSecs int      `yaml:"generation_timeout_secs"`
}

// MinScoreValue returns the score threshold; -1 disables filtering.
func (c RAGConfig) MinScoreValue() float64 {
	if c.MinScore == nil {
		return -1
	}
	return *c.MinScore
}

// EmbedTimeout returns the query embedding timeout.
func (c RAGConfig) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutSecs) * time.Second
}

// GenerationTimeout returns the answer generation timeout.
func (c RAGConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSecs) * time.Second
}

// WatchConfig configures the folder watcher.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Debounce returns the quiet period before a rescan.
func (c WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	RAG         RAGConfig         `yaml:"rag"`
	Watch       WatchConfig       `yaml:"watch"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/docrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedder.type: unknown %q", c.Embedder.Type))
	}
	switch c.LLM.Type {
	case "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.type: unknown %q", c.LLM.Type))
	}
	switch c.Chunker.Type {
	case "fixed":
		if c.Chunker.ChunkSize <= 0 {
			errs = append(errs, errors.New("chunker.chunk_size must be positive"))
		}
		if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
			errs = append(errs, fmt.Errorf("chunker.overlap %d must be in [0, chunk_size)", c.Chunker.Overlap))
		}
	case "sentence":
		if c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
			errs = append(errs, errors.New("chunker.overlap_sentences must be less than sentences_per_chunk"))
		}
	default:
		errs = append(errs, fmt.Errorf("chunker.type: unknown %q", c.Chunker.Type))
	}
	switch c.VectorStore.Backend {
	case "file", "bolt", "memory":
	default:
		errs = append(errs, fmt.Errorf("vector_store.backend: unknown %q", c.VectorStore.Backend))
	}
	if c.VectorStore.Backend != "memory" && c.VectorStore.Dir == "" {
		errs = append(errs, errors.New("vector_store.dir is required"))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, errors.New("rag.top_k must be positive"))
	}
	if c.RAG.MaxContextChars <= 0 {
		errs = append(errs, errors.New("rag.max_context_chars must be positive"))
	}
	if ms := c.RAG.MinScoreValue(); ms < -1 || ms > 1 {
		errs = append(errs, fmt.Errorf("rag.min_score %v must be in [-1, 1]", ms))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "hashing", Hashing: &HashingEmbedderConfig{Dimension: 384}},
		LLM:      LLMConfig{Type: "openai"},
		Chunker:  ChunkerConfig{Type: "fixed", ChunkSize: 1000, Overlap: 200},
		VectorStore: VectorStoreConfig{
			Backend: "file",
			Dir:     "data",
		},
		Ingest: IngestConfig{UploadDir: "uploads"},
		RAG:    RAGConfig{TopK: 5, MaxContextChars: 6000},
		Watch:  WatchConfig{DebounceMS: 500},
		Log:    LogConfig{Level: "info"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 384
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 64
		}
		if o.Concurrency == 0 {
			o.Concurrency = 4
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 5
		}
	}

	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "openai"
	}
	if cfg.LLM.Type == "openai" {
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAILLMConfig{}
		}
		o := cfg.LLM.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4o-mini"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.MaxTokens == 0 {
			o.MaxTokens = 500
		}
		if o.Temperature == 0 {
			o.Temperature = 0.7
		}
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "fixed"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.Overlap == 0 && cfg.Chunker.Type == "fixed" {
		cfg.Chunker.Overlap = 200
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "file"
	}
	if cfg.VectorStore.Dir == "" {
		cfg.VectorStore.Dir = "data"
	}
	if cfg.Ingest.UploadDir == "" {
		cfg.Ingest.UploadDir = "uploads"
	}

	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.MaxContextChars == 0 {
		cfg.RAG.MaxContextChars = 6000
	}
	if cfg.RAG.EmbedTimeoutSecs == 0 {
		cfg.RAG.EmbedTimeoutSecs = 30
	}
	if cfg.RAG.GenerationTimeoutSecs == 0 {
		cfg.RAG.GenerationTimeoutSecs = 60
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv(EnvUploadDir); v != "" {
		cfg.Ingest.UploadDir = v
	}
	if v := os.Getenv(EnvStoreDir); v != "" {
		cfg.VectorStore.Dir = v
	}
}
