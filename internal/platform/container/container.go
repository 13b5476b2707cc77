package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/ai-tutor/internal/core/chunk"
	"github.com/jinford/ai-tutor/internal/core/document"
	"github.com/jinford/ai-tutor/internal/core/index"
	"github.com/jinford/ai-tutor/internal/core/retrieval"
	"github.com/jinford/ai-tutor/internal/core/session"
	"github.com/jinford/ai-tutor/internal/core/speech"
	"github.com/jinford/ai-tutor/internal/core/tutor"
	"github.com/jinford/ai-tutor/internal/infra/boltdb"
	"github.com/jinford/ai-tutor/internal/infra/elevenlabs"
	"github.com/jinford/ai-tutor/internal/infra/memory"
	"github.com/jinford/ai-tutor/internal/infra/openai"
	"github.com/jinford/ai-tutor/internal/infra/pdftext"
	"github.com/jinford/ai-tutor/internal/infra/postgres"
	"github.com/jinford/ai-tutor/internal/platform/config"
	"github.com/jinford/ai-tutor/internal/platform/database"
)

// ServiceContainer はプロセス起動時に一度だけ組み立てる依存関係を保持する。
// インデックスとセッションストアは全リクエストで共有される。
type ServiceContainer struct {
	TutorService  *tutor.Service
	SpeechService *speech.Service
	Index         *index.Index
	Retriever     *retrieval.Retriever
	Sessions      session.Store
	Documents     *document.Registry

	logger   *slog.Logger
	database *database.DB
}

type containerOptions struct {
	logger      *slog.Logger
	embedder    index.Embedder
	generator   tutor.Generator
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	database    *database.DB
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder index.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerGenerator は回答生成クライアントを差し替える
func WithContainerGenerator(generator tutor.Generator) ContainerOption {
	return func(opts *containerOptions) {
		opts.generator = generator
	}
}

// WithContainerTranscriber は音声認識クライアントを差し替える
func WithContainerTranscriber(transcriber speech.Transcriber) ContainerOption {
	return func(opts *containerOptions) {
		opts.transcriber = transcriber
	}
}

// WithContainerSynthesizer は音声合成クライアントを差し替える
func WithContainerSynthesizer(synthesizer speech.Synthesizer) ContainerOption {
	return func(opts *containerOptions) {
		opts.synthesizer = synthesizer
	}
}

// WithContainerDatabase は既存のデータベース接続を使う
func WithContainerDatabase(db *database.DB) ContainerOption {
	return func(opts *containerOptions) {
		opts.database = db
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (_ *ServiceContainer, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	c := &ServiceContainer{logger: logger, database: options.database}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	// Database (PostgreSQL)
	if cfg.UsesPostgres() {
		if c.database == nil {
			c.database, err = database.New(ctx, database.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
			}
		}
		if err = postgres.EnsureSchema(ctx, c.database.Pool, cfg.OpenAI.EmbeddingDimension); err != nil {
			return nil, fmt.Errorf("スキーマ初期化に失敗しました: %w", err)
		}
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithEmbeddingTimeout(cfg.OpenAI.EmbeddingTimeout),
			openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI Embedder初期化に失敗しました: %w", err)
		}
	}

	// Generator (OpenAI)
	generator := options.generator
	if generator == nil {
		generator, err = openai.NewChatClient(
			cfg.OpenAI.APIKey,
			openai.WithChatModel(cfg.OpenAI.ChatModel),
			openai.WithTemperature(cfg.OpenAI.Temperature),
			openai.WithChatTimeout(cfg.OpenAI.GenerationTimeout),
			openai.WithChatBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
	}

	// Vector Store
	var store index.Store
	switch cfg.Storage.VectorStore {
	case config.BackendPostgres:
		store = postgres.NewVectorStore(c.database.Pool)
	default:
		store = memory.NewVectorStore()
	}
	c.Index = index.NewIndex(embedder, store, index.WithIndexLogger(logger))
	c.Retriever = retrieval.NewRetriever(c.Index, retrieval.WithTopK(cfg.RAG.TopK))

	// Session Store
	c.Sessions, err = newSessionStore(ctx, cfg, c.database, logger)
	if err != nil {
		return nil, err
	}

	// Chunker
	lengthFunc, err := chunk.LengthFuncFor(chunk.Unit(cfg.RAG.ChunkUnit))
	if err != nil {
		return nil, fmt.Errorf("Chunker 初期化に失敗しました: %w", err)
	}
	splitter, err := chunk.NewSplitter(
		chunk.WithChunkSize(cfg.RAG.ChunkSize),
		chunk.WithOverlap(cfg.RAG.ChunkOverlap),
		chunk.WithLengthFunc(lengthFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("Chunker 初期化に失敗しました: %w", err)
	}

	// Document extractors
	c.Documents = document.NewRegistry()
	c.Documents.Register(".pdf", pdftext.NewExtractor(pdftext.WithLogger(logger)))
	c.Documents.Register(".txt", document.PlainText{})
	c.Documents.Register(".md", document.PlainText{})

	// TutorService
	c.TutorService = tutor.NewService(
		c.Retriever,
		generator,
		c.Sessions,
		tutor.WithLogger(logger),
		tutor.WithIngestor(tutor.NewIngestor(c.Documents, splitter, c.Index)),
	)

	// SpeechService (ElevenLabs)
	transcriber, synthesizer := options.transcriber, options.synthesizer
	if (transcriber == nil || synthesizer == nil) && cfg.ElevenLabs.APIKey != "" {
		client, err := elevenlabs.NewClient(
			cfg.ElevenLabs.APIKey,
			cfg.ElevenLabs.VoiceID,
			elevenlabs.WithBaseURL(cfg.ElevenLabs.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("ElevenLabsクライアント初期化に失敗しました: %w", err)
		}
		if transcriber == nil {
			transcriber = client
		}
		if synthesizer == nil {
			synthesizer = client
		}
	}
	if transcriber == nil || synthesizer == nil {
		logger.Warn("speech provider is not configured; /stt and /tts will fail")
	}
	c.SpeechService = speech.NewService(transcriber, synthesizer, speech.WithLogger(logger))

	return c, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, db *database.DB, logger *slog.Logger) (session.Store, error) {
	if cfg.Storage.SessionStore == config.BackendPostgres {
		return postgres.NewSessionStore(db.Pool), nil
	}

	var opts []session.MemoryStoreOption
	opts = append(opts, session.WithMemoryStoreLogger(logger))
	if path := cfg.Storage.SessionSnapshotPath; path != "" {
		snap, err := boltdb.Open(path, boltdb.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("セッションスナップショットを開けません: %w", err)
		}
		opts = append(opts, session.WithSnapshotter(snap))
	}

	store, err := session.NewMemoryStore(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("セッションストア初期化に失敗しました: %w", err)
	}
	return store, nil
}

// Close は内部リソースを解放する。セッションストアをフラッシュしてからDB接続を閉じる
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}

	var errs []error
	if c.Sessions != nil {
		if err := c.Sessions.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.database != nil {
		c.database.Close()
	}
	return errors.Join(errs...)
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す（PostgreSQL を使わない構成では nil）。
func (c *ServiceContainer) Database() *database.DB {
	if c == nil {
		return nil
	}
	return c.database
}
