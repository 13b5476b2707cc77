package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder は複数テキストをまとめてEmbeddingできる Embedder
type BatchEmbedder interface {
	Embedder
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	MaxBatchSize() int
}

// Store はEmbedding済みエントリの保存先（追記のみ）
type Store interface {
	// Insert はエントリを一括で追加する。1回の呼び出しは原子的に反映される
	Insert(ctx context.Context, entries []Entry) error

	// Search は類似度の降順（同値は挿入順）で最大 k 件を返す
	Search(ctx context.Context, vector []float32, k int) ([]RetrievedDocument, error)

	// Count は保存済みエントリ数を返す
	Count(ctx context.Context) (int, error)
}

// Index はチャンクをEmbeddingして Store に保存し、類似検索を提供する
type Index struct {
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

type IndexOption func(*Index)

// WithIndexLogger は Index にロガーを設定する
func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(i *Index) {
		i.logger = logger
	}
}

// NewIndex は新しい Index を作成する
func NewIndex(embedder Embedder, store Store, opts ...IndexOption) *Index {
	idx := &Index{
		embedder: embedder,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = slog.Default()
	}
	return idx
}

// Add はチャンクをEmbeddingしてインデックスに追加する。
// 全チャンクのEmbeddingが揃ってから1回の Insert で保存するため、途中状態は検索から見えない。
func (i *Index) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}

	vectors, err := i.embedAll(ctx, texts)
	if err != nil {
		return &EmbeddingError{Op: "add", Err: err}
	}

	entries := make([]Entry, len(chunks))
	for n, c := range chunks {
		entries[n] = Entry{
			ID:        uuid.New(),
			Chunk:     c,
			Embedding: vectors[n],
		}
	}

	if err := i.store.Insert(ctx, entries); err != nil {
		return fmt.Errorf("failed to insert entries: %w", err)
	}

	i.logger.Info("chunks indexed", "chunks", len(entries))
	return nil
}

// Query は text に類似したチャンクを最大 k 件、類似度の降順で返す
func (i *Index) Query(ctx context.Context, text string, k int) ([]RetrievedDocument, error) {
	if k <= 0 {
		return []RetrievedDocument{}, nil
	}

	count, err := i.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	if count == 0 {
		return []RetrievedDocument{}, nil
	}

	vector, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &EmbeddingError{Op: "query", Err: err}
	}

	docs, err := i.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if docs == nil {
		docs = []RetrievedDocument{}
	}
	return docs, nil
}

// embedAll はバッチ対応の Embedder であれば上限サイズごとにまとめて呼び出す
func (i *Index) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	batcher, ok := i.embedder.(BatchEmbedder)
	if !ok || batcher.MaxBatchSize() <= 0 {
		for _, text := range texts {
			v, err := i.embedder.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, v)
		}
		return vectors, nil
	}

	size := batcher.MaxBatchSize()
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch, err := batcher.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
