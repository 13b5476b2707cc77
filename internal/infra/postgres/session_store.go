package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jinford/ai-tutor/internal/core/session"
	"github.com/jinford/ai-tutor/internal/platform/database"
)

// SessionStore は core/session.Store を実装する PostgreSQL ストア。
// GetOrCreate が返す Session は呼び出し時点の履歴のスナップショットで、以降の追記は反映されない
type SessionStore struct {
	db DBTX
}

// NewSessionStore は新しい SessionStore を返す。
func NewSessionStore(db DBTX) *SessionStore {
	return &SessionStore{db: db}
}

var _ session.Store = (*SessionStore)(nil)

func (s *SessionStore) GetOrCreate(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, session.ErrEmptySessionID
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO chat_sessions (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id,
	); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT role, content FROM chat_turns WHERE session_id = $1 ORDER BY ordinal`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	var turns []session.Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, session.Turn{Role: session.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return session.NewSession(id, turns), nil
}

// Append はセッション行をロックしてから発話を追記する。
// 同じセッションへの追記は直列化され、別セッションへの追記は互いにブロックしない
func (s *SessionStore) Append(ctx context.Context, id string, turns ...session.Turn) error {
	if err := session.ValidateTurns(turns); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	_, err := database.Transact(ctx, s.db, func(tx pgx.Tx) (struct{}, error) {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM chat_sessions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return struct{}{}, fmt.Errorf("%w: %s", session.ErrUnknownSession, id)
		}
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to lock session: %w", err)
		}

		var next int32
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(ordinal) + 1, 0) FROM chat_turns WHERE session_id = $1`, id,
		).Scan(&next); err != nil {
			return struct{}{}, fmt.Errorf("failed to get next ordinal: %w", err)
		}

		batch := &pgx.Batch{}
		for i, t := range turns {
			batch.Queue(
				`INSERT INTO chat_turns (session_id, ordinal, role, content) VALUES ($1, $2, $3, $4)`,
				id, next+int32(i), string(t.Role), t.Content,
			)
		}
		batch.Queue(`UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, id)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to insert turns: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// Close は何もしない（接続プールはコンテナが閉じる）
func (s *SessionStore) Close() error {
	return nil
}
