package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jinford/ai-tutor/internal/platform/database"
)

// DBTX は *pgxpool.Pool が満たす、リポジトリが使う接続の操作
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func schemaStatements(dimension int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id         UUID PRIMARY KEY,
			seq        BIGSERIAL NOT NULL,
			content    TEXT NOT NULL,
			source     TEXT,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id         TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
			session_id TEXT NOT NULL REFERENCES chat_sessions (id),
			ordinal    INTEGER NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, ordinal)
		)`,
	}
}

var schemaLockID = LockID("ai-tutor", "schema")

// EnsureSchema は pgvector 拡張とテーブルが無ければ作成する。
// 複数プロセスが同時に起動しても DDL が競合しないよう、アドバイザリロックを取ってから1トランザクションで適用する。
// dimension は Embedding の次元数で、既存テーブルの次元とは照合しない
func EnsureSchema(ctx context.Context, db DBTX, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	_, err := database.Transact(ctx, db, func(tx pgx.Tx) (struct{}, error) {
		if err := AcquireXactLock(ctx, tx, schemaLockID); err != nil {
			return struct{}{}, err
		}
		for _, stmt := range schemaStatements(dimension) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return struct{}{}, fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}
