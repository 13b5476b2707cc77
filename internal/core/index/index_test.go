package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	maxBatch   int
	batchSizes []int
}

func (e *stubBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchSizes = append(e.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (e *stubBatchEmbedder) MaxBatchSize() int { return e.maxBatch }

type stubStore struct {
	inserted    [][]Entry
	results     []RetrievedDocument
	lastK       int
	searchCalls int
}

func (s *stubStore) Insert(ctx context.Context, entries []Entry) error {
	s.inserted = append(s.inserted, entries)
	return nil
}

func (s *stubStore) Search(ctx context.Context, vector []float32, k int) ([]RetrievedDocument, error) {
	s.searchCalls++
	s.lastK = k
	return s.results, nil
}

func (s *stubStore) Count(ctx context.Context) (int, error) {
	n := 0
	for _, batch := range s.inserted {
		n += len(batch)
	}
	return n + len(s.results), nil
}

func TestIndexAddEmptyIsNoop(t *testing.T) {
	embedder := &stubEmbedder{}
	store := &stubStore{}
	idx := NewIndex(embedder, store)

	require.NoError(t, idx.Add(context.Background(), []Chunk{}))
	assert.Equal(t, 0, embedder.calls)
	assert.Empty(t, store.inserted)
}

func TestIndexAddInsertsAllChunksInOneCall(t *testing.T) {
	embedder := &stubEmbedder{}
	store := &stubStore{}
	idx := NewIndex(embedder, store)

	chunks := []Chunk{
		{Text: "one", Metadata: Metadata{Source: "a.pdf"}},
		{Text: "three", Metadata: Metadata{Source: "a.pdf"}},
	}
	require.NoError(t, idx.Add(context.Background(), chunks))

	require.Len(t, store.inserted, 1)
	batch := store.inserted[0]
	require.Len(t, batch, 2)
	assert.Equal(t, chunks[0], batch[0].Chunk)
	assert.Equal(t, []float32{5, 1}, batch[1].Embedding)
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
}

func TestIndexAddUsesBatchEmbedder(t *testing.T) {
	embedder := &stubBatchEmbedder{maxBatch: 2}
	store := &stubStore{}
	idx := NewIndex(embedder, store)

	chunks := make([]Chunk, 5)
	for i := range chunks {
		chunks[i] = Chunk{Text: "chunk"}
	}
	require.NoError(t, idx.Add(context.Background(), chunks))

	assert.Equal(t, []int{2, 2, 1}, embedder.batchSizes)
	require.Len(t, store.inserted, 1)
	assert.Len(t, store.inserted[0], 5)
}

func TestIndexAddPropagatesEmbeddingFailure(t *testing.T) {
	upstream := errors.New("connection refused")
	store := &stubStore{}
	idx := NewIndex(&stubEmbedder{err: upstream}, store)

	err := idx.Add(context.Background(), []Chunk{{Text: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingService)
	assert.ErrorIs(t, err, upstream)
	assert.Empty(t, store.inserted)

	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "add", embErr.Op)
}

func TestIndexQueryPropagatesEmbeddingFailure(t *testing.T) {
	store := &stubStore{results: []RetrievedDocument{{Text: "x"}}}
	idx := NewIndex(&stubEmbedder{err: errors.New("timeout")}, store)

	docs, err := idx.Query(context.Background(), "question", 3)
	assert.ErrorIs(t, err, ErrEmbeddingService)
	assert.Nil(t, docs)
	assert.Equal(t, 0, store.searchCalls)
}

func TestIndexQueryOnEmptyStoreSkipsEmbedding(t *testing.T) {
	embedder := &stubEmbedder{}
	idx := NewIndex(embedder, &stubStore{})

	docs, err := idx.Query(context.Background(), "question", 3)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.Equal(t, 0, embedder.calls)
}

func TestIndexQueryPassesK(t *testing.T) {
	store := &stubStore{results: []RetrievedDocument{{Text: "a"}, {Text: "b"}}}
	idx := NewIndex(&stubEmbedder{}, store)

	docs, err := idx.Query(context.Background(), "question", 3)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, 3, store.lastK)
}
