package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbedder_Dimension(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewEmbedder(0).Dimension())
	assert.Equal(t, 64, NewEmbedder(64).Dimension())
	assert.Equal(t, "hashing", NewEmbedder(8).Name())
}

func TestEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewEmbedder(128)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "Go is great for concurrent services")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "Go is great for concurrent services")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 128)
	assert.InDelta(t, 1.0, norm(v1), 1e-5)
}

func TestEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(256)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "vacation policy for employees")
	near, _ := e.Embed(ctx, "The vacation policy grants employees twenty days.")
	far, _ := e.Embed(ctx, "Quarterly revenue grew in the northern region.")

	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestEmbedder_StopwordsOnlyIsZeroVector(t *testing.T) {
	e := NewEmbedder(32)
	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm(v))
}

func TestEmbedder_EmbedBatchOrder(t *testing.T) {
	e := NewEmbedder(64)
	ctx := context.Background()
	texts := []string{"alpha", "bravo", "charlie"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbedder_EmbedBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(8).EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}
