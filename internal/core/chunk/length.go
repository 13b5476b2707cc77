package chunk

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// LengthFunc はチャンク長の単位を定義する関数
type LengthFunc func(text string) int

// RuneCount は Unicode コードポイント数を長さとする（デフォルトの単位）
func RuneCount(text string) int {
	return utf8.RuneCountInString(text)
}

// NewTokenLengthFunc は cl100k_base エンコーダのトークン数を長さとする LengthFunc を返す。
// OpenAI の text-embedding-3-small と同じトークナイザ。
func NewTokenLengthFunc() (LengthFunc, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return func(text string) int {
		return len(encoder.Encode(text, nil, nil))
	}, nil
}

// Unit はチャンク長の単位
type Unit string

const (
	UnitChar  Unit = "char"
	UnitToken Unit = "token"
)

// LengthFuncFor は単位名から LengthFunc を解決する
func LengthFuncFor(unit Unit) (LengthFunc, error) {
	switch unit {
	case "", UnitChar:
		return RuneCount, nil
	case UnitToken:
		return NewTokenLengthFunc()
	default:
		return nil, fmt.Errorf("%w: unknown chunk unit %q", ErrInvalidConfig, unit)
	}
}
