package tutor

import (
	"github.com/samber/mo"

	"github.com/jinford/ai-tutor/internal/core/index"
)

// MessageRole は生成リクエスト内のメッセージ種別
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message は生成リクエストの1メッセージ
type Message struct {
	Role    MessageRole
	Content string
}

// AskResult は単発質問の結果を表す
type AskResult struct {
	Answer      string                    `json:"answer"`
	ContextUsed []index.RetrievedDocument `json:"context_used"` // 参照したチャンク（関連度順）
}

// ChatParams は会話のパラメータを表す
type ChatParams struct {
	Message   string
	SessionID mo.Option[string] // 未指定なら新規に採番する
}

// ChatResult は会話の結果を表す
type ChatResult struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// IngestParams は文書取り込みのパラメータを表す
type IngestParams struct {
	Filename string
	Data     []byte
}

// IngestResult は文書取り込みの結果を表す
type IngestResult struct {
	ChunksStored int `json:"chunks_stored"`
}
