// Package openai embeds text through an OpenAI-compatible embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "text-embedding-3-small"
	DefaultTimeout     = 30 * time.Second
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
	DefaultMaxRetries  = 5
)

// Ensure Client implements the interface.
var _ domain.Embedder = (*Client)(nil)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string
	// APIKey takes precedence over APIKeyEnv when set.
	APIKey string
	Model  string
	// Dimensions requests shortened vectors from models that support it. Zero means model default.
	Dimensions int
	Timeout    time.Duration
	// BatchSize is the number of texts sent per request.
	BatchSize int
	// Concurrency bounds in-flight batch requests.
	Concurrency int
	MaxRetries  int
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
}

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	api         *openai.Client
	model       string
	dimensions  int
	timeout     time.Duration
	batchSize   int
	concurrency int
	maxRetries  int
	limiter     *rate.Limiter
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := cfg.APIKey
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	oc := openai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	c := &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		timeout:     cfg.Timeout,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the requested dimensionality, or 0 when the model default
// applies and has not been observed yet.
func (c *Client) Dimension() int { return c.dimensions }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into batches and embeds them concurrently.
// The result is index-aligned with texts; any batch failure fails the call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := c.embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// embed issues one request with retries and returns vectors placed by response index.
func (c *Client) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      inputs,
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("embeddings retry %d/%d after: %v", attempt, c.maxRetries, lastErr)
			if err := sleep(ctx, retryDelay(attempt-1)); err != nil {
				return nil, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if retryable(err) {
				continue
			}
			return nil, fmt.Errorf("openai embeddings failed: %w", err)
		}
		return placeVectors(resp.Data, len(inputs))
	}
	return nil, fmt.Errorf("openai embeddings failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func placeVectors(data []openai.Embedding, n int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("openai embeddings returned %d vectors for %d inputs", len(data), n)
	}
	out := make([][]float32, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("openai embeddings returned out of range index %d", d.Index)
		}
		if out[d.Index] != nil {
			return nil, fmt.Errorf("openai embeddings returned duplicate index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("openai embeddings returned empty vector at %d", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		out[d.Index] = v
	}
	return out, nil
}

// retryable reports whether err is a rate limit, a server error or a transport failure.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}
