package session

import (
	"sync"

	"github.com/google/uuid"
)

// Role は発話者の種別
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Valid は既知のロールかどうかを返す
func (r Role) Valid() bool {
	return r == RoleHuman || r == RoleAssistant
}

// Turn は会話履歴の1発話
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session はセッションIDに紐づく会話履歴。履歴は時系列順に追記されるのみで並べ替えや削除はしない
type Session struct {
	ID string

	mu    sync.Mutex
	turns []Turn
}

// NewSession は既存の履歴からセッションを作成する
func NewSession(id string, turns []Turn) *Session {
	return &Session{
		ID:    id,
		turns: append([]Turn(nil), turns...),
	}
}

// Transcript は履歴のコピーを時系列順で返す
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn{}, s.turns...)
}

// Len は履歴の発話数を返す
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

func (s *Session) append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
}

// NewID は新しいセッションIDを生成する
func NewID() string {
	return uuid.NewString()
}
