package index

import "github.com/google/uuid"

// Metadata はチャンクに付与されるメタデータ
type Metadata struct {
	Source string `json:"source"` // 取り込み元のファイル名
}

// Chunk はインデックスに追加される検索単位のテキスト
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Entry はEmbedding済みのチャンク。挿入時にIDと挿入順序が割り当てられ、以後変更されない
type Entry struct {
	ID        uuid.UUID
	Seq       int64 // 挿入順序（同スコア時のタイブレークに使用）
	Chunk     Chunk
	Embedding []float32
}

// RetrievedDocument は類似検索で返されるチャンク（関連度の降順）
type RetrievedDocument struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}
