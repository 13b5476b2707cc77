package chunk

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize はチャンクの最大長（単位は LengthFunc に従う）
	DefaultChunkSize = 1000
	// DefaultOverlap は隣接チャンク間で重複させる長さ
	DefaultOverlap = 200
)

// DefaultSeparators は分割境界の優先順位。段落、行、文、単語、最後に1文字単位で切る。
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Splitter はテキストを自然な境界で区切りながら、重複付きの固定長チャンクに分割する
type Splitter struct {
	chunkSize  int
	overlap    int
	length     LengthFunc
	separators []string
}

// Option は Splitter のオプション設定
type Option func(*Splitter)

// WithChunkSize はチャンクの最大長を設定する
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap はチャンク間の重複長を設定する
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// WithLengthFunc は長さの単位を差し替える（デフォルトは文字数）
func WithLengthFunc(fn LengthFunc) Option {
	return func(s *Splitter) {
		s.length = fn
	}
}

// WithSeparators は分割境界の優先順位を差し替える
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// NewSplitter は新しい Splitter を作成する
func NewSplitter(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
		length:     RuneCount,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive (got %d)", ErrInvalidConfig, s.chunkSize)
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d) (got %d)", ErrInvalidConfig, s.chunkSize, s.overlap)
	}
	if s.length == nil {
		s.length = RuneCount
	}
	if len(s.separators) == 0 || s.separators[len(s.separators)-1] != "" {
		// 最後は必ず1文字単位のハードカットで終わる
		s.separators = append(append([]string{}, s.separators...), "")
	}

	return s, nil
}

// ChunkSize はチャンクの最大長を返す
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap は重複長を返す
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split はテキストをチャンクに分割する。
// 空文字列や空白のみのテキストに対しては空のスライスを返す（エラーではない）。
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{}
	}
	if s.length(trimmed) <= s.chunkSize {
		return []string{trimmed}
	}

	chunks := s.split(text, s.separators)
	if chunks == nil {
		return []string{}
	}
	return chunks
}

// split は使える区切り文字のうち最も優先度の高いもので分割し、
// 長すぎる断片は次の区切り文字で再帰的に分割する
func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if s.length(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}

	return chunks
}

// merge は断片をチャンクサイズまで貪欲に連結する。
// チャンクを確定するたびに、末尾の断片を overlap の範囲内で次のチャンクへ持ち越す。
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		l := s.length(piece)
		if total+l > s.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+l > s.chunkSize && total > 0) {
				total -= s.length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += l
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator は区切り文字を直前の断片の末尾に残したまま分割する。
// separator が空の場合は1文字（UTF-8 の1コードポイント）ごとに分割する。
func splitKeepSeparator(text, separator string) []string {
	parts := strings.SplitAfter(text, separator)
	pieces := parts[:0]
	for _, p := range parts {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}
