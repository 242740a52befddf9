// Package backend はドキュメントストア・認証サービス・ファイル保存先へのハンドルを生成する。
//
// ハンドルはプロセス起動時に1回だけ生成し、以降は読み取り専用で共有する。
// 初期化に失敗した場合、呼び出し側はプロセスを終了させる。
package backend

import (
	"context"
	"errors"

	"github.com/nao1215/kintai/internal/blobstore"
	"github.com/nao1215/kintai/internal/docstore"
)

// ErrInvalidToken はトークンの検証に失敗したことを表す。
var ErrInvalidToken = errors.New("トークンが無効です")

// Identity は検証済みトークンが示す利用者。
type Identity struct {
	// UID は認証サービス上の利用者ID。
	UID string
	// Email は利用者のメールアドレス。
	Email string
}

// Authenticator はベアラートークンを検証する。
type Authenticator interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// TokenIssuer は開発用トークンを発行できる認証サービスが満たすインターフェース。
type TokenIssuer interface {
	IssueToken(uid, email string) (string, error)
}

// Handles はバックエンドへのハンドルをまとめたもの。
type Handles struct {
	// Store はドキュメントストア。
	Store docstore.Store
	// Auth は認証サービス。
	Auth Authenticator
	// Blobs はアップロードファイルの保存先。
	Blobs blobstore.Store
}

// Close はハンドルが保持する接続を解放する。
func (h *Handles) Close() error {
	if h == nil || h.Store == nil {
		return nil
	}
	return h.Store.Close()
}
