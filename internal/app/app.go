// Package app assembles the components selected by the configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/embedding/hashing"
	embopenai "docrag/internal/embedding/openai"
	"docrag/internal/extract"
	"docrag/internal/llm"
	llmopenai "docrag/internal/llm/openai"
	"docrag/internal/logger"
	"docrag/internal/service"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/bolt"
	"docrag/internal/vectorstore/file"
	"docrag/internal/vectorstore/memory"
)

// App owns the process-wide components. The store is opened once and must
// be released with Close.
type App struct {
	Config   *config.AppConfig
	Store    *vectorstore.Store
	Embedder domain.Embedder
	Ingester *service.Ingester

	rag *service.RAGService
}

// New builds the ingestion side of the application. The answer generator is
// built on first use so commands that never query need no LLM credentials.
func New(cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	ch, err := NewChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	p, err := NewPersister(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	gw := embedding.NewGateway(emb)
	store := vectorstore.Open(p,
		vectorstore.WithModel(gw.Name()),
		vectorstore.WithDimension(gw.Dimension()),
		vectorstore.WithDefaultTopK(cfg.RAG.TopK),
	)
	ing := service.NewIngester(extract.New(), ch, gw, store,
		service.WithUploadDir(cfg.Ingest.UploadDir),
		service.WithCleanText(cfg.Ingest.CleanTextEnabled()),
	)
	logger.Debug("app ready: embedder=%s chunker=%s backend=%s", gw.Name(), cfg.Chunker.Type, cfg.VectorStore.Backend)
	return &App{Config: cfg, Store: store, Embedder: gw, Ingester: ing}, nil
}

// RAG returns the query orchestrator, building the LLM client on first call.
func (a *App) RAG() (*service.RAGService, error) {
	if a.rag != nil {
		return a.rag, nil
	}
	model, err := NewLLM(a.Config.LLM)
	if err != nil {
		return nil, err
	}
	a.rag = service.NewRAGService(a.Embedder, a.Store, model, service.QueryOptions{
		TopK:              a.Config.RAG.TopK,
		MaxContextChars:   a.Config.RAG.MaxContextChars,
		MinScore:          a.Config.RAG.MinScoreValue(),
		EmbedTimeout:      a.Config.RAG.EmbedTimeout(),
		GenerationTimeout: a.Config.RAG.GenerationTimeout(),
	})
	return a.rag, nil
}

// Close flushes and closes the store.
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		dim := 0
		if cfg.Hashing != nil {
			dim = cfg.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Dimensions:        cfg.OpenAI.Dimensions,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:         cfg.OpenAI.BatchSize,
			Concurrency:       cfg.OpenAI.Concurrency,
			MaxRetries:        cfg.OpenAI.MaxRetries,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// NewChunker builds the configured chunker.
func NewChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "fixed", "":
		return chunker.NewFixedChunker(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.Overlap)), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

// NewPersister builds the configured store backend.
func NewPersister(cfg config.VectorStoreConfig) (vectorstore.Persister, error) {
	switch cfg.Backend {
	case "file", "":
		return file.New(cfg.Dir)
	case "bolt":
		return bolt.New(cfg.Dir)
	case "memory":
		return memory.NewPersister(), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", cfg.Backend)
	}
}

// NewLLM builds the configured answer generator.
func NewLLM(cfg config.LLMConfig) (llm.LLM, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("openai llm init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}
