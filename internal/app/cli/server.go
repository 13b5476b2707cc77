package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ai-tutor/internal/interface/httpapi"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	port := appCtx.Config.HTTP.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	cont := appCtx.Container
	server := httpapi.NewServer(
		cont.TutorService,
		cont.SpeechService,
		httpapi.WithLogger(appCtx.Logger()),
		httpapi.WithAddr(fmt.Sprintf(":%d", port)),
		httpapi.WithAllowedOrigins(appCtx.Config.HTTP.CORSAllowedOrigins),
		httpapi.WithShutdownTimeout(appCtx.Config.HTTP.ShutdownTimeout),
	)

	if err := server.Start(ctx); err != nil {
		appCtx.Logger().Error("HTTPサーバが異常終了しました", "error", err)
		return err
	}

	appCtx.Logger().Info("HTTPサーバを停止しました")
	return nil
}
