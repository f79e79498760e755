// Package embedding is the gateway to sentence-embedding models.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"docrag/internal/domain"
)

// Gateway wraps an Embedder and enforces the embedding contract: batch
// output is index-aligned with input, every vector is non-empty, and all
// vectors share one dimensionality. Every failure wraps
// domain.ErrEmbeddingUnavailable; no zero-vector fallback exists.
type Gateway struct {
	inner domain.Embedder

	mu        sync.Mutex
	dimension int
}

// Ensure Gateway implements the interface.
var _ domain.Embedder = (*Gateway)(nil)

// NewGateway wraps inner.
func NewGateway(inner domain.Embedder) *Gateway {
	return &Gateway{inner: inner, dimension: inner.Dimension()}
}

// Name returns the wrapped embedder's name.
func (g *Gateway) Name() string { return g.inner.Name() }

// Dimension returns the established vector dimension, or 0 before the first call
// when the model does not advertise one.
func (g *Gateway) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dimension
}

// Embed returns the vector for a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := g.inner.Embed(ctx, text)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := g.check(v); err != nil {
		return nil, err
	}
	return v, nil
}

// EmbedBatch returns one vector per text, in input order.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := g.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if err := g.check(v); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}
	return vecs, nil
}

func (g *Gateway) check(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingUnavailable)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dimension == 0 {
		g.dimension = len(v)
		return nil
	}
	if len(v) != g.dimension {
		return fmt.Errorf("%w: %w: got %d, want %d", domain.ErrEmbeddingUnavailable, domain.ErrDimensionMismatch, len(v), g.dimension)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}

// Normalize scales v to unit L2 length in place. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
