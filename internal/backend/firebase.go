package backend

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/nao1215/kintai/internal/blobstore"
	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/internal/credential"
	"github.com/nao1215/kintai/internal/docstore"
)

// Initialize は解決済みの認証情報からFirebaseの各クライアントを生成する。
func Initialize(ctx context.Context, cfg *config.Config, resolved *credential.Resolved, logger *zap.Logger) (*Handles, error) {
	cred := resolved.Credential
	credJSON, err := cred.JSON()
	if err != nil {
		return nil, err
	}

	bucketName := cfg.StorageBucket
	if bucketName == "" {
		bucketName = cred.ProjectID + ".appspot.com"
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cred.ProjectID,
		StorageBucket: bucketName,
	}, option.WithCredentialsJSON(credJSON))
	if err != nil {
		return nil, fmt.Errorf("Firebaseアプリの初期化に失敗: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの生成に失敗: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("Authクライアントの生成に失敗: %w", err)
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("Storageクライアントの生成に失敗: %w", err)
	}
	bucket, err := storageClient.Bucket(bucketName)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("バケット %s の取得に失敗: %w", bucketName, err)
	}

	logger.Info("Firebase Admin SDKを初期化しました",
		zap.String("project_id", cred.ProjectID),
		zap.String("bucket", bucketName),
		zap.Stringer("credential_source", resolved.Source),
	)

	return &Handles{
		Store: docstore.NewFirestore(fs),
		Auth:  &firebaseAuth{client: authClient},
		Blobs: blobstore.NewGCS(bucket, bucketName),
	}, nil
}

// firebaseAuth はFirebase AuthenticationのIDトークンを検証する。
type firebaseAuth struct {
	client *auth.Client
}

func (a *firebaseAuth) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	t, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := t.Claims["email"].(string)
	return &Identity{UID: t.UID, Email: email}, nil
}
