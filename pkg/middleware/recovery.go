package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kintai/pkg/httperror"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニックの値とスタックトレースをエラーとしてコンテキストに積み、
// レスポンスの生成は ErrorHandler に任せる。
//
// c.Error で積んだ場合と同じ応答になるよう、*httperror.Error を含むエラーは
// そのステータスとメッセージを保つ。その他のエラーは500とエラーのメッセージ、
// エラー以外の値は500と既定のメッセージになる。スタックトレースはログにだけ出る。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			_ = c.Error(panicError(r, debug.Stack()))
			c.Abort()
		}()
		c.Next()
	}
}

// panicError はパニックの値をパイプラインのエラーに変換する。
func panicError(r any, stack []byte) error {
	err, ok := r.(error)
	if !ok {
		return httperror.Wrap(fmt.Errorf("panic: %v\n%s", r, stack), http.StatusInternalServerError, "")
	}
	var he *httperror.Error
	if errors.As(err, &he) {
		return fmt.Errorf("panic: %w\n%s", err, stack)
	}
	return httperror.Wrap(fmt.Errorf("panic: %w\n%s", err, stack), http.StatusInternalServerError, err.Error())
}
