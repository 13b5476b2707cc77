package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/ai-tutor/internal/core/index"
	"github.com/jinford/ai-tutor/internal/core/retrieval"
	"github.com/jinford/ai-tutor/internal/core/session"
)

// Retriever は質問に関連するチャンクを返す（retrieval.Retriever が実装する）
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]index.RetrievedDocument, error)
}

// Generator は回答生成の外部サービス。1回の呼び出しで1つの回答を返す
type Generator interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Service は検索・プロンプト構築・回答生成を組み合わせるチューターサービス
type Service struct {
	retriever Retriever
	generator Generator
	sessions  session.Store
	ingestor  *Ingestor
	logger    *slog.Logger
}

type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIngestor は文書取り込みを有効にする
func WithIngestor(ingestor *Ingestor) ServiceOption {
	return func(s *Service) {
		s.ingestor = ingestor
	}
}

// NewService は新しい Service を作成する
func NewService(
	retriever Retriever,
	generator Generator,
	sessions session.Store,
	opts ...ServiceOption,
) *Service {
	svc := &Service{
		retriever: retriever,
		generator: generator,
		sessions:  sessions,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// AskOnce は会話履歴を使わずに1問1答で回答する
func (s *Service) AskOnce(ctx context.Context, question string) (*AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	docs, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []index.RetrievedDocument{}
	}

	s.logger.Info("generating answer", "documents", len(docs))

	answer, err := s.generate(ctx, BuildAskMessages(question, retrieval.BuildContext(docs)))
	if err != nil {
		return nil, err
	}

	return &AskResult{
		Answer:      answer,
		ContextUsed: docs,
	}, nil
}

// Chat はセッションの履歴を踏まえて回答する。
// 検索は最新のメッセージのみで行い、生成が成功した場合に限り発話の組を履歴へ追記する
func (s *Service) Chat(ctx context.Context, params ChatParams) (*ChatResult, error) {
	if strings.TrimSpace(params.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	sessionID := params.SessionID.OrEmpty()
	if sessionID == "" {
		sessionID = session.NewID()
	}

	docs, err := s.retriever.Retrieve(ctx, params.Message)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	transcript := sess.Transcript()

	s.logger.Info("generating chat answer",
		"sessionID", sessionID,
		"turns", len(transcript),
		"documents", len(docs),
	)

	answer, err := s.generate(ctx, BuildChatMessages(transcript, retrieval.BuildContext(docs), params.Message))
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Append(ctx, sessionID,
		session.Turn{Role: session.RoleHuman, Content: params.Message},
		session.Turn{Role: session.RoleAssistant, Content: answer},
	); err != nil {
		return nil, fmt.Errorf("failed to append turns: %w", err)
	}

	return &ChatResult{
		Answer:    answer,
		SessionID: sessionID,
	}, nil
}

// Ingest は文書を取り込んでインデックスへ追加する
func (s *Service) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	if s.ingestor == nil {
		return nil, ErrIngestionUnavailable
	}

	result, err := s.ingestor.Ingest(ctx, params)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document ingested", "filename", params.Filename, "chunks", result.ChunksStored)
	return result, nil
}

// generate は生成サービスを1回だけ呼び出す
func (s *Service) generate(ctx context.Context, messages []Message) (string, error) {
	answer, err := s.generator.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationService, err)
	}
	return answer, nil
}
