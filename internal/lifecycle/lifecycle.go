// Package lifecycle はHTTPパイプラインを起動形態に応じて実行する。
//
// 常駐プロセスではTCPポートで待ち受け、関数実行基盤ではソケットを開かずに
// ハンドラを実行基盤へ渡す。どちらの場合もパイプラインは呼び出し前に組み立て済みであること。
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/config"
)

const (
	// readHeaderTimeout はリクエストヘッダーの読み取りタイムアウト。
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout = 15 * time.Second
)

// Options はRunの設定。
type Options struct {
	// Addr は待ち受けアドレス。ModeListenでのみ使う。
	Addr string
	// Logger はロガー。nilの場合はログを出力しない。
	Logger *zap.Logger
	// OnListen は待ち受けを開始したときに呼ばれる。
	OnListen func(addr net.Addr)
	// StartFunction は関数実行基盤にハンドラを渡す。nilの場合はAWS Lambdaを使う。
	StartFunction func(ctx context.Context, h http.Handler) error
}

// Run はmodeに応じてハンドラを実行する。
// ModeListenではctxがキャンセルされるまで待ち受け、グレースフルにシャットダウンする。
func Run(ctx context.Context, mode config.DeploymentMode, h http.Handler, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch mode {
	case config.ModeListen:
		return listen(ctx, h, opts, logger)
	case config.ModeExported:
		start := opts.StartFunction
		if start == nil {
			start = startLambda
		}
		logger.Info("関数実行基盤にハンドラを渡します")
		return start(ctx, h)
	default:
		return fmt.Errorf("不明な起動形態: %d", mode)
	}
}

// listen はTCPポートで待ち受ける。
func listen(ctx context.Context, h http.Handler, opts Options, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("%s での待ち受けに失敗: %w", opts.Addr, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}

	logger.Info("サーバーを起動しました", zap.String("addr", ln.Addr().String()))
	if opts.OnListen != nil {
		opts.OnListen(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーが停止しました: %w", err)
	case <-ctx.Done():
	}

	logger.Info("シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("サーバーを停止しました")
	return nil
}

// startLambda はAWS Lambdaのランタイムにハンドラを渡す。戻らない。
func startLambda(ctx context.Context, h http.Handler) error {
	lambda.StartWithOptions(LambdaHandler(h), lambda.WithContext(ctx))
	return nil
}
