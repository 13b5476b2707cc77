package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ai-tutor/internal/core/tutor"
)

// Ingester は文書取り込みのユースケース
type Ingester interface {
	Ingest(ctx context.Context, params tutor.IngestParams) (*tutor.IngestResult, error)
}

// IngestAction は文書ファイルをインデックスへ取り込むコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("取り込むファイルを指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile, requirePersistentIndex)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return ingestFiles(ctx, appCtx.Container.TutorService, paths, os.Stdout)
}

// ingestFiles はファイルを順に取り込み、結果を out に書き出す。最初の失敗で中断する
func ingestFiles(ctx context.Context, ingester Ingester, paths []string, out io.Writer) error {
	total := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
		}

		result, err := ingester.Ingest(ctx, tutor.IngestParams{
			Filename: filepath.Base(path),
			Data:     data,
		})
		if err != nil {
			return fmt.Errorf("%s の取り込みに失敗: %w", path, err)
		}

		total += result.ChunksStored
		fmt.Fprintf(out, "Stored %d chunks from %s\n", result.ChunksStored, filepath.Base(path))
	}

	if len(paths) > 1 {
		fmt.Fprintf(out, "Stored %d chunks in total\n", total)
	}
	return nil
}
