package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/mo"
)

// Transcriber は音声をテキストへ変換する外部サービス
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*Transcript, error)
}

// Synthesizer はテキストを音声へ変換する外部サービス
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*Audio, error)
}

// Service は入力を検証して音声プロバイダへ中継する
type Service struct {
	transcriber Transcriber
	synthesizer Synthesizer
	logger      *slog.Logger
}

type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(transcriber Transcriber, synthesizer Synthesizer, opts ...ServiceOption) *Service {
	svc := &Service{
		transcriber: transcriber,
		synthesizer: synthesizer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Transcribe は音声ファイルをテキストへ変換する
func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (*Transcript, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: audio is empty", ErrInvalidInput)
	}
	if s.transcriber == nil {
		return nil, fmt.Errorf("%w: transcriber is not configured", ErrUpstream)
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		s.logger.Error("transcription failed", "filename", filename, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return transcript, nil
}

// Synthesize はテキストを音声へ変換する
func (s *Service) Synthesize(ctx context.Context, req SynthesisRequest) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	stability := req.Stability.OrElse(DefaultStability)
	if stability < 0 || stability > 1 {
		return nil, fmt.Errorf("%w: stability must be between 0 and 1", ErrInvalidInput)
	}
	req.Stability = mo.Some(stability)
	if s.synthesizer == nil {
		return nil, fmt.Errorf("%w: synthesizer is not configured", ErrUpstream)
	}

	audio, err := s.synthesizer.Synthesize(ctx, req)
	if err != nil {
		s.logger.Error("synthesis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return audio, nil
}
