package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kintai/pkg/httperror"
)

// principalKey はGinコンテキストに認証済み利用者を格納するキー。
const principalKey = "principal"

// Principal は認証済みの利用者。
type Principal struct {
	// UID は利用者ID。
	UID string
	// Email はメールアドレス。空の場合がある。
	Email string
}

// VerifyFunc はベアラートークンを検証して利用者を返す関数。
type VerifyFunc func(ctx context.Context, token string) (Principal, error)

// Authenticate はAuthorizationヘッダーのベアラートークンを検証するGinミドルウェアを返す。
// 検証に失敗した場合は401エラーを積んで中断する。
func Authenticate(verify VerifyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(httperror.New(http.StatusUnauthorized, "Missing or malformed authorization header"))
			c.Abort()
			return
		}

		p, err := verify(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(httperror.Wrap(err, http.StatusUnauthorized, "Invalid token"))
			c.Abort()
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// bearerToken は "Bearer <token>" 形式のヘッダーからトークンを取り出す。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetPrincipal はコンテキストから認証済み利用者を取得する。
func GetPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// GetUserID は認証済み利用者のIDを返す。未認証の場合は空文字。
func GetUserID(c *gin.Context) string {
	p, _ := GetPrincipal(c)
	return p.UID
}
