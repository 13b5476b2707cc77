package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Snapshotter はインメモリストアの内容を起動時に読み込み、終了時に書き出す永続化先
type Snapshotter interface {
	Load(ctx context.Context) (map[string][]Turn, error)
	Save(ctx context.Context, transcripts map[string][]Turn) error
	Close() error
}

// MemoryStore はプロセス内で会話履歴を保持する Store 実装。
// マップ全体のロックは検索と作成にのみ使い、追記はセッションごとのロックで直列化する。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	snapshotter Snapshotter
	logger      *slog.Logger
}

type MemoryStoreOption func(*MemoryStore)

// WithSnapshotter は起動時の読み込みと終了時の書き出し先を設定する
func WithSnapshotter(s Snapshotter) MemoryStoreOption {
	return func(m *MemoryStore) {
		m.snapshotter = s
	}
}

// WithMemoryStoreLogger はロガーを設定する
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(m *MemoryStore) {
		m.logger = logger
	}
}

// NewMemoryStore は MemoryStore を作成する。Snapshotter があれば保存済みの履歴を読み込む
func NewMemoryStore(ctx context.Context, opts ...MemoryStoreOption) (*MemoryStore, error) {
	m := &MemoryStore{
		sessions: make(map[string]*Session),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	if m.snapshotter != nil {
		transcripts, err := m.snapshotter.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load session snapshot: %w", err)
		}
		for id, turns := range transcripts {
			m.sessions[id] = NewSession(id, turns)
		}
		m.logger.Info("session snapshot loaded", "sessions", len(transcripts))
	}

	return m, nil
}

var _ Store = (*MemoryStore)(nil)

// GetOrCreate はセッションを返す。未知のIDなら作成する
func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}

	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	sess = NewSession(id, nil)
	m.sessions[id] = sess
	return sess, nil
}

// Append は履歴の末尾に発話を追記する
func (m *MemoryStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if err := ValidateTurns(turns); err != nil {
		return err
	}

	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	sess.append(turns...)
	return nil
}

// Len は保持しているセッション数を返す
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close は Snapshotter があれば全履歴を書き出して閉じる
func (m *MemoryStore) Close() error {
	if m.snapshotter == nil {
		return nil
	}

	m.mu.RLock()
	transcripts := make(map[string][]Turn, len(m.sessions))
	for id, sess := range m.sessions {
		transcripts[id] = sess.Transcript()
	}
	m.mu.RUnlock()

	saveErr := m.snapshotter.Save(context.Background(), transcripts)
	closeErr := m.snapshotter.Close()
	if saveErr != nil {
		return fmt.Errorf("failed to save session snapshot: %w", saveErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close session snapshot: %w", closeErr)
	}

	m.logger.Info("session snapshot saved", "sessions", len(transcripts))
	return nil
}
