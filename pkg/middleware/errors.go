package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/kintai/pkg/httperror"
)

// ErrorBody はエラーレスポンスのJSONエンベロープ。
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail はエラーレスポンスの中身。
type ErrorDetail struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorHandler は後続のミドルウェアとハンドラが積んだエラーを
// {"error":{"message","status"}} 形式のレスポンスに変換するGinミドルウェアを返す。
//
// 後続の処理がすべて終わった後に動くため、エラーを発生させうるステージより外側に登録する。
// ハンドラはレスポンスを書かずに c.Error(err) を呼んで return すること。
// c.AbortWithError は先にステータス行を書き込むため、エンベロープを返せなくなる。
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		defer func() {
			// このステージ自体は決してパニックを外に出さない。
			if r := recover(); r != nil {
				logger.Error("エラーハンドラでパニックが発生", zap.Any("panic", r))
				if !c.Writer.Written() {
					c.AbortWithStatus(http.StatusInternalServerError)
				}
			}
		}()

		err := c.Errors.Last().Err
		status := httperror.StatusOf(err)
		message := httperror.MessageOf(err)

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", RequestIDFrom(c)),
			zap.Strings("errors", c.Errors.Errors()),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("リクエストの処理に失敗", fields...)
		} else {
			logger.Warn("リクエストの処理に失敗", fields...)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Message: message, Status: status}})
	}
}
