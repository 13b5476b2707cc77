package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jinford/ai-tutor/internal/core/speech"
	"github.com/jinford/ai-tutor/internal/core/tutor"
)

const (
	// DefaultAddr は待ち受けアドレスの既定値
	DefaultAddr = ":8000"

	// DefaultShutdownTimeout は停止時に処理中リクエストを待つ時間の既定値
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMaxUploadBytes はアップロードされるファイルの上限サイズ
	DefaultMaxUploadBytes int64 = 32 << 20

	readTimeout  = 30 * time.Second
	writeTimeout = 120 * time.Second
)

// TutorService は質問応答と文書取り込みのユースケース（tutor.Service が実装する）
type TutorService interface {
	AskOnce(ctx context.Context, question string) (*tutor.AskResult, error)
	Chat(ctx context.Context, params tutor.ChatParams) (*tutor.ChatResult, error)
	Ingest(ctx context.Context, params tutor.IngestParams) (*tutor.IngestResult, error)
}

// SpeechService は音声認識と音声合成のユースケース（speech.Service が実装する）
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*speech.Transcript, error)
	Synthesize(ctx context.Context, req speech.SynthesisRequest) (*speech.Audio, error)
}

var (
	_ TutorService  = (*tutor.Service)(nil)
	_ SpeechService = (*speech.Service)(nil)
)

// Server はチューター API を提供する HTTP サーバ
type Server struct {
	tutor  TutorService
	speech SpeechService
	logger *slog.Logger

	addr            string
	allowedOrigins  []string
	shutdownTimeout time.Duration
	maxUploadBytes  int64
}

type ServerOption func(*Server)

// WithLogger は Server にロガーを設定する
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAddr は待ち受けアドレスを設定する
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAllowedOrigins は CORS で許可するオリジンを設定する。"*" は全オリジンを許可する
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithShutdownTimeout は停止時の待ち時間を設定する
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithMaxUploadBytes はアップロードサイズの上限を設定する
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer は新しい Server を作成する
func NewServer(tutorSvc TutorService, speechSvc SpeechService, opts ...ServerOption) *Server {
	s := &Server{
		tutor:           tutorSvc,
		speech:          speechSvc,
		logger:          slog.Default(),
		addr:            DefaultAddr,
		shutdownTimeout: DefaultShutdownTimeout,
		maxUploadBytes:  DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler はミドルウェアを適用したルーティングを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /stt", s.handleSTT)
	mux.HandleFunc("POST /tts", s.handleTTS)

	return corsMiddleware(s.allowedOrigins, loggingMiddleware(s.logger, mux))
}

// Start はアドレスで待ち受けを開始し、ctx がキャンセルされるとグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln でリクエストを処理する。ctx のキャンセル後は処理中のリクエストの完了を待って戻る
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}
