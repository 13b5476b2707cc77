package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/ai-tutor/internal/core/index"
)

// VectorStore はプロセス内に保持する総当たりコサイン類似度のベクトルストア
type VectorStore struct {
	mu      sync.RWMutex
	entries []index.Entry
	nextSeq int64
}

// NewVectorStore は空の VectorStore を作成する
func NewVectorStore() *VectorStore {
	return &VectorStore{}
}

var _ index.Store = (*VectorStore)(nil)

// Insert はエントリを追加する。ロック内で一括追加するため検索からは途中状態が見えない
func (s *VectorStore) Insert(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 {
		dim := len(s.entries[0].Embedding)
		for _, e := range entries {
			if len(e.Embedding) != dim {
				return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(e.Embedding), dim)
			}
		}
	}

	for _, e := range entries {
		s.nextSeq++
		e.Seq = s.nextSeq
		e.Embedding = append([]float32(nil), e.Embedding...)
		s.entries = append(s.entries, e)
	}
	return nil
}

// Search は類似度の降順で最大 k 件を返す。同スコアは挿入順
func (s *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]index.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return []index.RetrievedDocument{}, nil
	}

	type scored struct {
		entry *index.Entry
		score float64
	}
	candidates := make([]scored, len(s.entries))
	for i := range s.entries {
		candidates[i] = scored{entry: &s.entries[i], score: cosine(s.entries[i].Embedding, vector)}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].entry.Seq < candidates[b].entry.Seq
	})

	k = min(k, len(candidates))
	docs := make([]index.RetrievedDocument, 0, k)
	for _, c := range candidates[:k] {
		docs = append(docs, index.RetrievedDocument{
			Text:     c.entry.Chunk.Text,
			Metadata: c.entry.Chunk.Metadata,
			Score:    c.score,
		})
	}
	return docs, nil
}

// Count は保存済みエントリ数を返す
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
