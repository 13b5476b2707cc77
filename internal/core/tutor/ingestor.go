package tutor

import (
	"context"
	"fmt"

	"github.com/jinford/ai-tutor/internal/core/document"
	"github.com/jinford/ai-tutor/internal/core/index"
)

// TextSplitter は抽出テキストをチャンクに分割する（chunk.Splitter が実装する）
type TextSplitter interface {
	Split(text string) []string
}

// ChunkIndexer はチャンクをインデックスへ追加する（index.Index が実装する）
type ChunkIndexer interface {
	Add(ctx context.Context, chunks []index.Chunk) error
}

// Ingestor は文書を抽出・分割・索引付けする
type Ingestor struct {
	extractor document.Extractor
	splitter  TextSplitter
	indexer   ChunkIndexer
}

// NewIngestor は新しい Ingestor を作成する
func NewIngestor(extractor document.Extractor, splitter TextSplitter, indexer ChunkIndexer) *Ingestor {
	return &Ingestor{
		extractor: extractor,
		splitter:  splitter,
		indexer:   indexer,
	}
}

// Ingest は文書を取り込み、保存したチャンク数を返す。
// チャンクの出典にはファイル名を記録する
func (g *Ingestor) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	text, err := g.extractor.Extract(ctx, params.Filename, params.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", params.Filename, err)
	}

	pieces := g.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExtractableContent, params.Filename)
	}

	chunks := make([]index.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = index.Chunk{
			Text:     p,
			Metadata: index.Metadata{Source: params.Filename},
		}
	}

	if err := g.indexer.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", params.Filename, err)
	}

	return &IngestResult{ChunksStored: len(chunks)}, nil
}
