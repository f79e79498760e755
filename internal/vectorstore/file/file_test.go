package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

func TestPersister_LoadMissing(t *testing.T) {
	p, err := New(filepath.Join(t.TempDir(), "nested", "store"))
	require.NoError(t, err)

	snap, err := p.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPersister_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	in := &vectorstore.Snapshot{
		Version:   vectorstore.SnapshotVersion,
		Model:     "hashing",
		Dimension: 2,
		Documents: []vectorstore.DocumentRecord{{Filename: "a.pdf", Size: 12, ChunkCount: 1}},
		Chunks:    []vectorstore.ChunkRecord{{Filename: "a.pdf", Ordinal: 0, Text: "hello", Vector: []float32{0.6, 0.8}}},
	}
	require.NoError(t, p.Save(in))

	_, err = os.Stat(filepath.Join(dir, FileName+".tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	out, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, syncDir(t.TempDir()))
	assert.Error(t, syncDir(filepath.Join(t.TempDir(), "missing")))
}

func TestPersister_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, p.Save(&vectorstore.Snapshot{Version: vectorstore.SnapshotVersion}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestPersister_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("garbage"), 0o600))
	p, err := New(dir)
	require.NoError(t, err)

	_, err = p.Load()
	assert.ErrorIs(t, err, domain.ErrStoreCorrupt)

	s := vectorstore.Open(p)
	assert.Equal(t, 0, s.Len())
}

func TestPersister_StoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := New(dir)
	require.NoError(t, err)
	s := vectorstore.New(p, vectorstore.WithModel("hashing"))
	added, err := s.AddDocument(ctx, domain.Document{Filename: "a.pdf", Size: 3}, []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{Filename: "a.pdf", Index: 0, Text: "alpha"}, Vector: []float32{1, 0}},
		{Chunk: domain.Chunk{Filename: "a.pdf", Index: 1, Text: "bravo"}, Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, s.Close(ctx))

	p2, err := New(dir)
	require.NoError(t, err)
	reopened := vectorstore.Open(p2, vectorstore.WithModel("hashing"))
	assert.True(t, reopened.HasDocument("a.pdf"))

	results, err := reopened.Search([]float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bravo", results[0].Chunk.Text)
	assert.Equal(t, 1, results[0].Chunk.Index)
}
