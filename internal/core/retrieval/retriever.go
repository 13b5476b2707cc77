package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinford/ai-tutor/internal/core/index"
)

// DefaultTopK は1回の検索で取得するチャンク数
const DefaultTopK = 3

// Querier は類似検索インターフェース（index.Index が実装する）
type Querier interface {
	Query(ctx context.Context, text string, k int) ([]index.RetrievedDocument, error)
}

// Retriever は固定の top-k で検索するポリシー層
type Retriever struct {
	querier Querier
	topK    int
}

type RetrieverOption func(*Retriever)

// WithTopK は取得件数を設定する（0以下は無視）
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// NewRetriever は新しい Retriever を作成する
func NewRetriever(querier Querier, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		querier: querier,
		topK:    DefaultTopK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopK は取得件数を返す
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve は質問に関連するチャンクを関連度順に返す
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]index.RetrievedDocument, error) {
	docs, err := r.querier.Query(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	return docs, nil
}

// BuildContext は検索結果のテキストを順位順に空行区切りで連結する。結果が無ければ空文字列
func BuildContext(docs []index.RetrievedDocument) string {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
	}
	return strings.Join(texts, "\n\n")
}
