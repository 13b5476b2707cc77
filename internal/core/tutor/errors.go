package tutor

import "errors"

var (
	// ErrInvalidInput は質問やメッセージが空の場合のエラー
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoExtractableContent は文書からチャンクが1つも得られなかった場合のエラー
	ErrNoExtractableContent = errors.New("no extractable content")

	// ErrGenerationService は回答生成サービスの失敗（タイムアウトを含む）
	ErrGenerationService = errors.New("generation service error")

	// ErrIngestionUnavailable は Ingestor が設定されていない場合のエラー
	ErrIngestionUnavailable = errors.New("ingestion is not configured")
)
