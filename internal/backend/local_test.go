package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/config"
)

// testSecret はテスト用の署名鍵。
const testSecret = "test-secret-key-for-unit-tests"

// TestLocalAuth はローカル認証サービスを検証する。
func TestLocalAuth(t *testing.T) {
	t.Parallel()

	t.Run("発行したトークンを検証できること", func(t *testing.T) {
		t.Parallel()

		a := NewLocalAuth(testSecret)
		token, err := a.IssueToken("user-123", "test@example.com")
		require.NoError(t, err)

		id, err := a.VerifyToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", id.UID)
		assert.Equal(t, "test@example.com", id.Email)
	})

	t.Run("異なる鍵で署名されたトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		token, err := NewLocalAuth("other-secret").IssueToken("user-123", "")
		require.NoError(t, err)

		_, err = NewLocalAuth(testSecret).VerifyToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("有効期限切れのトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		a := NewLocalAuth(testSecret)
		a.ttl = -time.Minute
		token, err := a.IssueToken("user-123", "")
		require.NoError(t, err)

		_, err = a.VerifyToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("発行者が異なるトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = NewLocalAuth(testSecret).VerifyToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("不正な形式のトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		_, err := NewLocalAuth(testSecret).VerifyToken(context.Background(), "invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// TestInitializeLocal はローカルバックエンドの初期化を検証する。
func TestInitializeLocal(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{LocalDataDir: t.TempDir(), DevAuthSecret: testSecret}
	h, err := InitializeLocal(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	require.NotNil(t, h.Store)
	require.NotNil(t, h.Auth)
	require.NotNil(t, h.Blobs)

	_, ok := h.Auth.(TokenIssuer)
	assert.True(t, ok, "ローカル認証はトークンを発行できること")

	doc, err := h.Store.Create(context.Background(), "employees", map[string]any{"name": "x"})
	require.NoError(t, err)

	obj, err := h.Blobs.Put(context.Background(), "uploads/"+doc.ID+"/a.txt", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), obj.Size)
}

// TestHandlesClose はnilのハンドルでもCloseが安全であることを検証する。
func TestHandlesClose(t *testing.T) {
	t.Parallel()

	var h *Handles
	assert.NoError(t, h.Close())
	assert.NoError(t, (&Handles{}).Close())
}
