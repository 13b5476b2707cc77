package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/ai-tutor/internal/core/document"
)

// Extractor は PDF からページごとにテキストを取り出す document.Extractor 実装
type Extractor struct {
	logger *slog.Logger
}

type ExtractorOption func(*Extractor)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor は新しい Extractor を作成する
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

var _ document.Extractor = (*Extractor)(nil)

// Extract は全ページのテキストを改行区切りで連結して返す。
// 抽出に失敗したページはスキップし、テキストの無いページは含めない
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	reader, err := openReader(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", filename, err)
	}

	var sb strings.Builder
	skipped := 0
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := pageText(reader, i)
		if err != nil {
			skipped++
			e.logger.Warn("skipping unreadable page", "filename", filename, "page", i, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if skipped > 0 {
		e.logger.Info("pdf extracted with skipped pages", "filename", filename, "pages", reader.NumPage(), "skipped", skipped)
	}
	return sb.String(), nil
}

func openReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
