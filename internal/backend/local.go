package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/blobstore"
	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/internal/docstore"
)

// localIssuer はローカル認証で発行するトークンのiss。
const localIssuer = "kintai-local"

// InitializeLocal はSQLiteとローカルディレクトリを使う開発用のハンドルを生成する。
// Firebaseの認証情報は不要。
func InitializeLocal(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Handles, error) {
	if err := os.MkdirAll(cfg.LocalDataDir, 0o750); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
	}

	dsn := filepath.Join(cfg.LocalDataDir, "kintai.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	store, err := docstore.OpenSQLite(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}

	blobs, err := blobstore.NewLocal(filepath.Join(cfg.LocalDataDir, "uploads"))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("ローカルバックエンドを初期化しました", zap.String("dir", cfg.LocalDataDir))

	return &Handles{
		Store: store,
		Auth:  NewLocalAuth(cfg.DevAuthSecret),
		Blobs: blobs,
	}, nil
}

// localClaims はローカル認証トークンのクレーム。
type localClaims struct {
	jwt.RegisteredClaims
	// Email は利用者のメールアドレス。
	Email string `json:"email"`
}

// LocalAuth はHS256で署名したトークンを発行・検証する開発用の認証サービス。
type LocalAuth struct {
	secret []byte
	ttl    time.Duration
}

// NewLocalAuth は署名鍵からLocalAuthを生成する。トークンの有効期限は24時間。
func NewLocalAuth(secret string) *LocalAuth {
	return &LocalAuth{secret: []byte(secret), ttl: 24 * time.Hour}
}

// IssueToken は利用者IDとメールアドレスからトークンを発行する。
func (a *LocalAuth) IssueToken(uid, email string) (string, error) {
	now := time.Now()
	claims := localClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// VerifyToken はトークンの署名・有効期限・発行者を検証する。
func (a *LocalAuth) VerifyToken(_ context.Context, token string) (*Identity, error) {
	claims := &localClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subが空です", ErrInvalidToken)
	}
	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}
