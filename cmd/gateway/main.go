// 勤怠APIゲートウェイのエントリポイント。
// 環境に応じてTCPポートで待ち受けるか、関数実行基盤にハンドラを渡す。
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/app"
	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/internal/lifecycle"
	"github.com/nao1215/kintai/pkg/logging"
)

func main() {
	port := pflag.String("port", "", "待ち受けポート（PORTより優先）")
	envFile := pflag.String("env-file", ".env", "読み込む.envファイル")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "%sの読み込みに失敗: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Production())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの初期化に失敗: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, handles, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("起動に失敗", zap.Error(err))
	}
	defer func() {
		if err := handles.Close(); err != nil {
			logger.Warn("バックエンドの解放に失敗", zap.Error(err))
		}
	}()

	mode := cfg.Mode()
	logger.Info("ゲートウェイを起動します",
		zap.Stringer("mode", mode),
		zap.String("backend", string(cfg.Backend)),
		zap.String("env", cfg.NodeEnv),
	)

	opts := lifecycle.Options{Addr: cfg.Addr(), Logger: logger}
	if mode == config.ModeExported && cfg.LambdaFunctionName == "" {
		// Vercelではapi/index.goのHandlerが呼ばれるため、ここでは何もしない。
		opts.StartFunction = func(context.Context, http.Handler) error {
			logger.Info("Vercelではapi.Handlerがエントリポイントのため待ち受けません")
			return nil
		}
	}

	if err := lifecycle.Run(ctx, mode, handler, opts); err != nil {
		logger.Error("ゲートウェイが異常終了しました", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
