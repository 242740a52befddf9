package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nao1215/kintai/pkg/httperror"
)

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		value       any
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "エラー以外の値のパニックは500と既定のメッセージになること",
			value:       "テスト用パニック",
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
		},
		{
			name:        "ステータス付きエラーのパニックはそのステータスとメッセージが保たれること",
			value:       httperror.NotFound(),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Not Found",
		},
		{
			name:        "ラップされたステータス付きエラーも保たれること",
			value:       fmt.Errorf("context: %w", httperror.New(http.StatusConflict, "conflict")),
			wantStatus:  http.StatusConflict,
			wantMessage: "conflict",
		},
		{
			name:        "ステータスを持たないエラーのパニックは500とそのメッセージになること",
			value:       errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "boom",
		},
		{
			name:        "メッセージのないエラーのパニックは既定のメッセージになること",
			value:       errors.New(""),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newPipeline()
			router.GET("/panic", func(_ *gin.Context) {
				panic(tt.value)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			got := decodeError(t, w)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.NotContains(t, w.Body.String(), "panic:")
			assert.NotContains(t, w.Body.String(), "goroutine")
		})
	}

	t.Run("パニックとc.Errorで同じ応答になること", func(t *testing.T) {
		t.Parallel()

		router := newPipeline()
		router.GET("/panic", func(_ *gin.Context) {
			panic(httperror.BadRequest("bad input"))
		})
		router.GET("/error", func(c *gin.Context) {
			_ = c.Error(httperror.BadRequest("bad input"))
		})

		wp := httptest.NewRecorder()
		router.ServeHTTP(wp, httptest.NewRequest(http.MethodGet, "/panic", nil))
		we := httptest.NewRecorder()
		router.ServeHTTP(we, httptest.NewRequest(http.MethodGet, "/error", nil))

		assert.Equal(t, we.Code, wp.Code)
		assert.JSONEq(t, we.Body.String(), wp.Body.String())
	})

	t.Run("パニックが発生しない場合は正常にレスポンスが返ること", func(t *testing.T) {
		t.Parallel()

		router := newPipeline()
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})
}
