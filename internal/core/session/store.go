package session

import (
	"context"
	"fmt"
)

// Store はセッションIDから会話履歴を引くストア
type Store interface {
	// GetOrCreate はセッションを返す。未知のIDであれば空のセッションを作成する。
	// 同一IDへの同時呼び出しでも作成されるセッションは1つだけ
	GetOrCreate(ctx context.Context, id string) (*Session, error)

	// Append は履歴の末尾に発話を追記する。1回の呼び出しで渡した発話はまとめて反映される
	Append(ctx context.Context, id string, turns ...Turn) error

	// Close はストアを閉じる（永続化先があればフラッシュする）
	Close() error
}

// AppendTurn は1発話を追記する
func AppendTurn(ctx context.Context, store Store, id string, role Role, content string) error {
	return store.Append(ctx, id, Turn{Role: role, Content: content})
}

// ValidateTurns は追記対象の発話を検証する
func ValidateTurns(turns []Turn) error {
	for i, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("%w: turn %d has role %q", ErrInvalidRole, i, t.Role)
		}
	}
	return nil
}
