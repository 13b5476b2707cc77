package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ai-tutor/internal/core/index"
)

type stubQuerier struct {
	docs  []index.RetrievedDocument
	err   error
	lastK int
	lastQ string
}

func (q *stubQuerier) Query(ctx context.Context, text string, k int) ([]index.RetrievedDocument, error) {
	q.lastQ = text
	q.lastK = k
	return q.docs, q.err
}

func TestRetrieverUsesDefaultTopK(t *testing.T) {
	q := &stubQuerier{docs: []index.RetrievedDocument{{Text: "a"}}}
	r := NewRetriever(q)

	docs, err := r.Retrieve(context.Background(), "what?")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, DefaultTopK, q.lastK)
	assert.Equal(t, "what?", q.lastQ)
}

func TestRetrieverWithTopK(t *testing.T) {
	q := &stubQuerier{}
	r := NewRetriever(q, WithTopK(5))

	_, err := r.Retrieve(context.Background(), "what?")
	require.NoError(t, err)
	assert.Equal(t, 5, q.lastK)

	assert.Equal(t, DefaultTopK, NewRetriever(q, WithTopK(0)).TopK())
}

func TestRetrieverPropagatesError(t *testing.T) {
	r := NewRetriever(&stubQuerier{err: index.ErrEmbeddingService})

	_, err := r.Retrieve(context.Background(), "what?")
	assert.True(t, errors.Is(err, index.ErrEmbeddingService))
}

func TestBuildContext(t *testing.T) {
	tests := []struct {
		name string
		docs []index.RetrievedDocument
		want string
	}{
		{name: "検索結果なし", docs: nil, want: ""},
		{name: "1件", docs: []index.RetrievedDocument{{Text: "alpha"}}, want: "alpha"},
		{
			name: "順位順に空行区切り",
			docs: []index.RetrievedDocument{{Text: "first"}, {Text: "second"}, {Text: "third"}},
			want: "first\n\nsecond\n\nthird",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildContext(tt.docs))
		})
	}
}
