package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/ai-tutor/internal/platform/config"
	"github.com/jinford/ai-tutor/internal/platform/container"
	"github.com/jinford/ai-tutor/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
}

// ErrEphemeralIndex は取り込んだ索引がプロセス終了とともに失われる設定で、索引を永続化する前提のコマンドを実行したときのエラー
var ErrEphemeralIndex = errors.New("VECTOR_STORE=memory の索引はプロセス終了時に失われます。VECTOR_STORE=postgres を設定してください")

// ConfigCheck はコンテナの初期化前に設定を検証する
type ConfigCheck func(cfg *config.Config) error

// requirePersistentIndex は索引がプロセスをまたいで残る設定かを検証する
func requirePersistentIndex(cfg *config.Config) error {
	if cfg.Storage.VectorStore == config.BackendMemory {
		return ErrEphemeralIndex
	}
	return nil
}

// NewAppContext は設定ファイルを読み込み、ロガーとコンテナを初期化して AppContext を作成する。
// checks はコンテナの初期化前に実行され、外部サービスへ接続する前に失敗させられる
func NewAppContext(ctx context.Context, envFile string, checks ...ConfigCheck) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return nil, err
		}
	}

	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		if err := ac.Container.Close(); err != nil {
			ac.Logger().Error("リソースの解放に失敗しました", "error", err)
		}
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
