package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-enry/go-enry/v2"
)

// ErrUnsupportedFormat は取り込めないファイル形式の場合のエラー
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor はアップロードされたバイナリ文書からプレーンテキストを取り出す
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Registry は拡張子ごとに Extractor を振り分ける
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry は空の Registry を作成する
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register は拡張子（".pdf" など、大文字小文字は区別しない）に Extractor を登録する
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[normalizeExt(ext)] = e
}

// Supports は filename の拡張子に対応する Extractor があるかを返す
func (r *Registry) Supports(filename string) bool {
	_, ok := r.extractors[normalizeExt(filepath.Ext(filename))]
	return ok
}

// Extract は filename の拡張子に対応する Extractor でテキストを取り出す
func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := normalizeExt(filepath.Ext(filename))
	e, ok := r.extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	return e.Extract(ctx, filename, data)
}

var _ Extractor = (*Registry)(nil)

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// PlainText は UTF-8 テキストファイルをそのまま返す Extractor。
// 拡張子が .txt でも中身がバイナリ（NUL を含む、UTF-8 として不正）なら取り込まない
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if enry.IsBinary(data) || !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not a UTF-8 text file", ErrUnsupportedFormat, filename)
	}
	return string(data), nil
}
