package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// allowedMethods はプリフライトに返す許可メソッド。
const allowedMethods = "GET, HEAD, PUT, PATCH, POST, DELETE, OPTIONS"

// defaultAllowedHeaders はプリフライトで要求ヘッダーが示されなかった場合に返す許可ヘッダー。
const defaultAllowedHeaders = "Authorization, Content-Type"

// CORS はクロスオリジンリクエストを許可するGinミドルウェアを返す。
// allowedOriginsが空の場合はすべてのオリジンを許可し、
// Access-Control-Allow-Origin に "*" を設定する。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = struct{}{}
	}
	permissive := len(originsSet) == 0

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := false
		switch {
		case permissive:
			c.Header("Access-Control-Allow-Origin", "*")
			allowed = true
		case origin != "":
			if _, ok := originsSet[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				allowed = true
			}
		}

		if c.Request.Method == http.MethodOptions {
			if allowed {
				headers := c.GetHeader("Access-Control-Request-Headers")
				if headers == "" {
					headers = defaultAllowedHeaders
				}
				c.Header("Access-Control-Allow-Methods", allowedMethods)
				c.Header("Access-Control-Allow-Headers", headers)
				c.Header("Access-Control-Max-Age", "86400")
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
