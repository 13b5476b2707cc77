package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/ai-tutor/internal/app/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "ai-tutor",
		Usage: "アップロードした教材をもとに回答する RAG チューター",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数 HTTP_PORT またはデフォルトの8000）",
								Value: 8000,
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "文書ファイル（PDF / テキスト / Markdown）をインデックスへ取り込む",
				ArgsUsage: "<file>...",
				Flags:     []cli.Flag{envFlag()},
				Action:    appcli.IngestAction,
			},
			{
				Name:      "ask",
				Usage:     "会話履歴を使わずに1問1答で質問する",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照したチャンクを表示",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "chat",
				Usage: "対話形式でチューターと会話する",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "再開するセッションID（省略時は新規作成）",
					},
				},
				Action: appcli.ChatAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
