package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jinford/ai-tutor/internal/core/session"
)

var sessionsBucket = []byte("sessions")

// Snapshotter は会話履歴を BoltDB ファイルへ保存する session.Snapshotter 実装。
// ファイルは Open から Close まで排他ロックされる
type Snapshotter struct {
	db     *bolt.DB
	logger *slog.Logger
}

var _ session.Snapshotter = (*Snapshotter)(nil)

type Option func(*Snapshotter)

// WithLogger は Snapshotter にロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshotter) {
		s.logger = logger
	}
}

// Open は path の BoltDB を開く。ディレクトリが無ければ作成する
func Open(path string, opts ...Option) (*Snapshotter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	s := &Snapshotter{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Load は保存済みの全セッションの履歴を読み込む。壊れたエントリは警告を出してスキップする
func (s *Snapshotter) Load(ctx context.Context) (map[string][]session.Turn, error) {
	out := map[string][]session.Turn{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var turns []session.Turn
			if len(v) > 0 {
				if err := json.Unmarshal(v, &turns); err != nil {
					s.logger.Warn("skipping corrupt session snapshot entry", "sessionID", string(k), "error", err)
					return nil
				}
			}
			out[string(k)] = turns
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return out, nil
}

// Save は渡された履歴でバケットを置き換える
func (s *Snapshotter) Save(ctx context.Context, transcripts map[string][]session.Turn) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(sessionsBucket) != nil {
			if err := tx.DeleteBucket(sessionsBucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(sessionsBucket)
		if err != nil {
			return err
		}
		for id, turns := range transcripts {
			enc, err := json.Marshal(turns)
			if err != nil {
				return fmt.Errorf("failed to encode session %s: %w", id, err)
			}
			if err := b.Put([]byte(id), enc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close はファイルを閉じる
func (s *Snapshotter) Close() error {
	return s.db.Close()
}
