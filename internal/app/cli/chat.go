package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/ai-tutor/internal/core/index"
	"github.com/jinford/ai-tutor/internal/core/tutor"
	"github.com/jinford/ai-tutor/internal/platform/config"
)

// Chatter は会話のユースケース
type Chatter interface {
	Chat(ctx context.Context, params tutor.ChatParams) (*tutor.ChatResult, error)
}

// ChatAction は対話形式でチューターと会話するコマンドのアクション
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if appCtx.Config.Storage.VectorStore == config.BackendMemory {
		appCtx.Logger().Warn("VECTOR_STORE=memory のため索引は空です。取り込んだ文書を参照するには VECTOR_STORE=postgres を設定してください")
	}

	prompt := promptui.Prompt{Label: "You"}
	fmt.Fprintln(os.Stdout, "/exit か Ctrl+D で終了します")

	return runChat(ctx, appCtx.Container.TutorService, sessionID, prompt.Run, os.Stdout)
}

// runChat は readLine から1行ずつ読み、回答を out に書き出す。
// 生成や Embedding の一時的な失敗は表示して会話を続ける
func runChat(ctx context.Context, chatter Chatter, sessionID string, readLine func() (string, error), out io.Writer) error {
	for ctx.Err() == nil {
		line, err := readLine()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("入力の読み込みに失敗: %w", err)
		}

		message := strings.TrimSpace(line)
		switch message {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		params := tutor.ChatParams{Message: message}
		if sessionID != "" {
			params.SessionID = mo.Some(sessionID)
		}

		result, err := chatter.Chat(ctx, params)
		if err != nil {
			if errors.Is(err, tutor.ErrGenerationService) || errors.Is(err, index.ErrEmbeddingService) {
				fmt.Fprintf(out, "エラー: %v\n\n", err)
				continue
			}
			return err
		}

		if sessionID == "" {
			sessionID = result.SessionID
			fmt.Fprintf(out, "(session: %s)\n", sessionID)
		}
		fmt.Fprintf(out, "Tutor: %s\n\n", result.Answer)
	}
	return nil
}
