// Package app は設定からバックエンドとHTTPパイプラインを組み立てる。
//
// 常駐プロセスのエントリーポイントとVercelの関数ハンドラの両方から使う。
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/backend"
	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/internal/credential"
	"github.com/nao1215/kintai/internal/gateway"
)

// Build はバックエンドを初期化し、パイプラインを組み立てたハンドラを返す。
// エラーが返った場合、呼び出し側はプロセスを終了させること。
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, *backend.Handles, error) {
	handles, err := initBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return gateway.NewServer(cfg, handles, logger).Handler(), handles, nil
}

func initBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend.Handles, error) {
	if cfg.Backend == config.BackendLocal {
		return backend.InitializeLocal(ctx, cfg, logger)
	}

	resolved, err := credential.Resolver{FilePath: cfg.CredentialFile}.Resolve()
	if err != nil {
		return nil, fmt.Errorf("認証情報の解決に失敗: %w", err)
	}
	logger.Info("認証情報を読み込みました",
		zap.Stringer("source", resolved.Source),
		zap.String("origin", resolved.Origin),
		zap.String("project_id", resolved.Credential.ProjectID),
	)

	handles, err := backend.Initialize(ctx, cfg, resolved, logger)
	if err != nil {
		return nil, fmt.Errorf("バックエンドの初期化に失敗: %w", err)
	}
	return handles, nil
}
