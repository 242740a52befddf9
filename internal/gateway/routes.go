package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kintai/internal/backend"
	"github.com/nao1215/kintai/pkg/httperror"
	"github.com/nao1215/kintai/pkg/metrics"
	"github.com/nao1215/kintai/pkg/middleware"
)

// welcomeMessage はルートパスで返す案内文。
const welcomeMessage = "Welcome to the Attendance API. See /api/health for status."

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック。バックエンドには触れない。
	s.router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
	})
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 開発用トークン発行。トークンを発行できる認証サービスで、本番以外の場合だけ公開する。
	if s.handles != nil && !s.cfg.Production() {
		if issuer, ok := s.handles.Auth.(backend.TokenIssuer); ok {
			s.router.POST("/auth/dev-token", s.handleDevToken(issuer))
		}
	}

	// 一覧と作成は末尾スラッシュの有無どちらでも同じハンドラで受ける。
	attendance := s.router.Group("/api/attendance", s.requireStore(), s.authenticate())
	{
		attendance.GET("", s.handleListAttendance())
		attendance.GET("/", s.handleListAttendance())
		attendance.POST("", s.handleCreateAttendance())
		attendance.POST("/", s.handleCreateAttendance())
		attendance.GET("/:id", s.handleGetAttendance())
		attendance.DELETE("/:id", s.handleDeleteAttendance())
	}

	employees := s.router.Group("/api/employees", s.requireStore(), s.authenticate())
	{
		employees.GET("", s.handleListEmployees())
		employees.GET("/", s.handleListEmployees())
		employees.POST("", s.handleCreateEmployee())
		employees.POST("/", s.handleCreateEmployee())
		employees.GET("/:id", s.handleGetEmployee())
		employees.PUT("/:id", s.handleUpdateEmployee())
		employees.DELETE("/:id", s.handleDeleteEmployee())
	}

	uploads := s.router.Group("/api/uploads", s.requireStore(), s.authenticate())
	{
		uploads.POST("", s.handleCreateUpload())
		uploads.POST("/", s.handleCreateUpload())
		uploads.GET("", s.handleListUploads())
		uploads.GET("/", s.handleListUploads())
		uploads.GET("/:id", s.handleGetUpload())
	}
}

// handleDevToken は開発用トークンを発行するハンドラを返す。
// ボディで uid と email を指定できる。省略時は開発ユーザーになる。
func (s *Server) handleDevToken(issuer backend.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, email := "dev-user", "dev@localhost"
		if body, ok := middleware.BodyMap(c); ok {
			if v, ok := body["uid"].(string); ok && v != "" {
				uid = v
			}
			if v, ok := body["email"].(string); ok && v != "" {
				email = v
			}
		}

		token, err := issuer.IssueToken(uid, email)
		if err != nil {
			_ = c.Error(httperror.Wrap(err, http.StatusInternalServerError, ""))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": uid,
		})
	}
}
