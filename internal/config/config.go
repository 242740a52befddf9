// Package config は環境変数からゲートウェイの設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Backend はバックエンドの種類を表す。
type Backend string

const (
	// BackendFirebase はFirestoreとFirebase Authenticationを使う。
	BackendFirebase Backend = "firebase"
	// BackendLocal はSQLiteとローカルファイルを使う開発用バックエンド。
	BackendLocal Backend = "local"
)

// DeploymentMode はプロセスの起動形態を表す。起動時に1回だけ決定する。
type DeploymentMode int

const (
	// ModeListen はTCPポートで待ち受ける常駐プロセス。
	ModeListen DeploymentMode = iota
	// ModeExported はソケットを開かず、外部の実行基盤にハンドラを渡す関数実行形態。
	ModeExported
)

func (m DeploymentMode) String() string {
	if m == ModeExported {
		return "exported"
	}
	return "listen"
}

// DefaultDevAuthSecret はDEV_AUTH_SECRETの既定値。本番では使えない。
const DefaultDevAuthSecret = "dev-secret-key"

// DefaultUploadLimit はアップロードの上限バイト数の既定値(10MiB)。
const DefaultUploadLimit int64 = 10 << 20

// Config はゲートウェイの設定。
type Config struct {
	// Port は待ち受けポート。
	Port string `envconfig:"PORT" default:"5000"`
	// NodeEnv は実行環境名。"production" で本番扱いになる。
	NodeEnv string `envconfig:"NODE_ENV" default:"development"`
	// Vercel はVercel上で実行されている場合に設定される。
	Vercel string `envconfig:"VERCEL"`
	// LambdaFunctionName はAWS Lambda上で実行されている場合に設定される。
	LambdaFunctionName string `envconfig:"AWS_LAMBDA_FUNCTION_NAME"`

	// Backend はバックエンドの種類。
	Backend Backend `envconfig:"BACKEND" default:"firebase"`
	// CredentialFile は認証情報ファイルのパス。空の場合は実行ファイルの隣を探す。
	CredentialFile string `envconfig:"CREDENTIAL_FILE"`
	// StorageBucket はアップロード先のCloud Storageバケット名。
	StorageBucket string `envconfig:"FIREBASE_STORAGE_BUCKET"`
	// LocalDataDir はローカルバックエンドのデータ保存先。
	LocalDataDir string `envconfig:"LOCAL_DATA_DIR" default:"./data"`
	// DevAuthSecret はローカルバックエンドのトークン署名鍵。
	DevAuthSecret string `envconfig:"DEV_AUTH_SECRET" default:"dev-secret-key"`

	// BodyLimit はリクエストボディの上限バイト数。
	BodyLimit int64 `envconfig:"BODY_LIMIT" default:"1048576"`
	// UploadLimit はアップロードするmultipartボディの上限バイト数。
	UploadLimit int64 `envconfig:"UPLOAD_LIMIT" default:"10485760"`
	// CORSOrigins は許可するオリジン。空の場合はすべて許可する。
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
	// LogLevel はログレベル。
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFirebase, BackendLocal:
	default:
		return fmt.Errorf("BACKENDが不正です: %q", c.Backend)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("BODY_LIMITは正の値が必要です: %d", c.BodyLimit)
	}
	if c.UploadLimit <= 0 {
		return fmt.Errorf("UPLOAD_LIMITは正の値が必要です: %d", c.UploadLimit)
	}
	// 既定の署名鍵は公開されているため、本番のローカルバックエンドでは誰でもトークンを作れてしまう。
	if c.Production() && c.Backend == BackendLocal && c.DevAuthSecret == DefaultDevAuthSecret {
		return errors.New("本番環境ではDEV_AUTH_SECRETに既定値以外を設定してください")
	}
	return nil
}

// Production は本番環境かどうかを返す。
func (c *Config) Production() bool {
	return strings.EqualFold(c.NodeEnv, "production")
}

// Mode は環境から起動形態を決定する。
// 本番かつVercel上、またはLambda上で実行されている場合は ModeExported になる。
func (c *Config) Mode() DeploymentMode {
	if c.Production() && c.Vercel != "" {
		return ModeExported
	}
	if c.LambdaFunctionName != "" {
		return ModeExported
	}
	return ModeListen
}

// Addr は待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.Port
}
