package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/ai-tutor/internal/core/index"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	question := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile, requirePersistentIndex)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.TutorService.AskOnce(ctx, question)
	if err != nil {
		appCtx.Logger().Error("質問応答に失敗しました", "error", err)
		return err
	}

	fmt.Fprintln(os.Stdout, result.Answer)

	if showSources && len(result.ContextUsed) > 0 {
		fmt.Fprintln(os.Stdout, "\n--- 参照ソース ---")
		renderSources(os.Stdout, result.ContextUsed)
	}
	return nil
}

const previewRunes = 60

// renderSources は参照チャンクをテーブル形式で表示する
func renderSources(w io.Writer, docs []index.RetrievedDocument) {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Source", "Score", "Text")

	for i, doc := range docs {
		table.Append(
			fmt.Sprintf("%d", i+1),
			doc.Metadata.Source,
			fmt.Sprintf("%.4f", doc.Score),
			preview(doc.Text),
		)
	}

	table.Render()
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
