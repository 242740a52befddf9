// Package handler はVercelのGoランタイムから呼ばれる関数ハンドラを提供する。
package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/app"
	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/pkg/logging"
)

var (
	once    sync.Once
	handler http.Handler
)

// Handler はリクエストをゲートウェイのパイプラインに渡す。
// パイプラインは最初の呼び出しで1回だけ組み立てる。初期化に失敗した場合はプロセスを終了する。
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(build)
	handler.ServeHTTP(w, r)
}

func build() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Production())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの初期化に失敗: %v\n", err)
		os.Exit(1)
	}

	h, _, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("起動に失敗", zap.Error(err))
	}
	handler = h
}
