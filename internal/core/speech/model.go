package speech

import "github.com/samber/mo"

// DefaultStability は読み上げの安定度の既定値
const DefaultStability = 0.5

// Transcript は音声認識の結果を表す
type Transcript struct {
	Text    string         `json:"text"`
	Details map[string]any `json:"details"` // プロバイダの生レスポンス
}

// SynthesisRequest は音声合成のリクエストを表す
type SynthesisRequest struct {
	Text      string
	Stability mo.Option[float64] // 0〜1、未指定なら DefaultStability
}

// Audio は合成された音声データを表す
type Audio struct {
	Data        []byte
	ContentType string
}
