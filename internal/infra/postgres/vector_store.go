package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/ai-tutor/internal/core/index"
	"github.com/jinford/ai-tutor/internal/platform/database"
)

// VectorStore は core/index.Store を実装する pgvector ベースのストア。
type VectorStore struct {
	db DBTX
}

// NewVectorStore は新しい VectorStore を返す。
func NewVectorStore(db DBTX) *VectorStore {
	return &VectorStore{db: db}
}

var _ index.Store = (*VectorStore)(nil)

const insertChunkSQL = `INSERT INTO document_chunks (id, content, source, embedding) VALUES ($1, $2, $3, $4)`

// Insert はエントリを1トランザクションで追加する。次元の不一致などで1件でも失敗すれば全体をロールバックする
func (s *VectorStore) Insert(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := database.Transact(ctx, s.db, func(tx pgx.Tx) (struct{}, error) {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(insertChunkSQL,
				UUIDToPgtype(e.ID),
				e.Chunk.Text,
				StringToNullableText(e.Chunk.Metadata.Source),
				pgvector.NewVector(e.Embedding),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to insert chunks: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

const searchChunksSQL = `
SELECT content, source, 1 - (embedding <=> $1) AS score
FROM document_chunks
ORDER BY embedding <=> $1, seq
LIMIT $2`

// Search はコサイン距離の昇順（同値は挿入順）で最大 k 件を返す
func (s *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]index.RetrievedDocument, error) {
	if k <= 0 {
		return []index.RetrievedDocument{}, nil
	}

	rows, err := s.db.Query(ctx, searchChunksSQL, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	results := make([]index.RetrievedDocument, 0, k)
	for rows.Next() {
		var (
			content string
			source  pgtype.Text
			score   float64
		)
		if err := rows.Scan(&content, &source, &score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		results = append(results, index.RetrievedDocument{
			Text:     content,
			Metadata: index.Metadata{Source: PgtextToString(source)},
			Score:    score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}
	return results, nil
}

// Count は保存済みチャンク数を返す
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}
