package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ai-tutor/internal/core/index"
)

func chunkEntry(text, source string, vec ...float32) index.Entry {
	return index.Entry{
		ID:        uuid.New(),
		Chunk:     index.Chunk{Text: text, Metadata: index.Metadata{Source: source}},
		Embedding: vec,
	}
}

func TestVectorStoreSearch(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(requireDB(t))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, store.Insert(ctx, []index.Entry{
		chunkEntry("x-axis", "a.pdf", 1, 0, 0),
		chunkEntry("diagonal", "a.pdf", 1, 1, 0),
		chunkEntry("y-axis", "", 0, 1, 0),
	}))

	docs, err := store.Search(ctx, []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "y-axis", docs[0].Text)
	assert.Equal(t, "", docs[0].Metadata.Source)
	assert.InDelta(t, 1.0, docs[0].Score, 1e-6)
	assert.Equal(t, "diagonal", docs[1].Text)
	assert.Equal(t, "a.pdf", docs[1].Metadata.Source)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestVectorStoreTiesFollowInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(requireDB(t))

	require.NoError(t, store.Insert(ctx, []index.Entry{chunkEntry("first", "a", 1, 0, 0)}))
	require.NoError(t, store.Insert(ctx, []index.Entry{chunkEntry("second", "a", 2, 0, 0)}))

	docs, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first", docs[0].Text)
	assert.Equal(t, "second", docs[1].Text)
}

func TestVectorStoreInsertIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(requireDB(t))

	err := store.Insert(ctx, []index.Entry{
		chunkEntry("ok", "a", 1, 0, 0),
		chunkEntry("wrong dimension", "a", 1, 0),
	})
	require.Error(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
