package index

import (
	"errors"
	"fmt"
)

// ErrEmbeddingService は Embedding サービスが失敗した場合のエラー
var ErrEmbeddingService = errors.New("embedding service error")

// EmbeddingError は Embedding 呼び出しの失敗を表す
type EmbeddingError struct {
	Op  string // "add" or "query"
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("index: %s: %s: %v", e.Op, ErrEmbeddingService, e.Err)
}

func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingService, e.Err}
}
