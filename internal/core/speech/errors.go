package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput は音声やテキストが空の場合のエラー
	ErrInvalidInput = errors.New("invalid speech input")

	// ErrUpstream は音声プロバイダの失敗
	ErrUpstream = errors.New("speech provider error")
)

// ProviderError は音声プロバイダからのエラー応答を表す
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Hint       map[string]string // 設定の確認に使う情報（voice_id など）
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
