package bolt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

func TestPersister_EmptyDatabase(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	snap, err := p.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPersister_SaveReplaces(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	first := &vectorstore.Snapshot{Version: vectorstore.SnapshotVersion, Model: "m1"}
	second := &vectorstore.Snapshot{
		Version:   vectorstore.SnapshotVersion,
		Model:     "m2",
		Dimension: 3,
		Documents: []vectorstore.DocumentRecord{{Filename: "x.docx", ChunkCount: 1}},
		Chunks:    []vectorstore.ChunkRecord{{Filename: "x.docx", Text: "t", Vector: []float32{1, 2, 3}}},
	}
	require.NoError(t, p.Save(first))
	require.NoError(t, p.Save(second))

	got, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestPersister_CorruptValue(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(snapshotKey, []byte("junk"))
	}))

	_, err = p.Load()
	assert.ErrorIs(t, err, domain.ErrStoreCorrupt)
}

func TestPersister_StoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := New(dir)
	require.NoError(t, err)
	s := vectorstore.New(p)
	_, err = s.AddDocument(ctx, domain.Document{Filename: "b.pdf"}, []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{Filename: "b.pdf", Text: "only"}, Vector: []float32{0.5, 0.5}},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	p2, err := New(dir)
	require.NoError(t, err)
	reopened := vectorstore.Open(p2)
	defer reopened.Close(ctx)
	assert.Equal(t, []string{"b.pdf"}, []string{reopened.ListDocuments()[0].Filename})
	assert.Equal(t, 2, reopened.Stats().Dimension)
}
