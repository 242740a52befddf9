package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/kintai/internal/backend"
	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/internal/docstore"
	"github.com/nao1215/kintai/pkg/httperror"
	"github.com/nao1215/kintai/pkg/metrics"
	"github.com/nao1215/kintai/pkg/middleware"
)

// errBackendUnavailable はバックエンドのハンドルがない場合に返すエラー。
var errBackendUnavailable = httperror.New(http.StatusServiceUnavailable, "Backend unavailable")

// Server は勤怠APIのHTTPパイプライン。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// handles はバックエンドへのハンドル。nilの場合、データを扱うルートは503を返す。
	handles *backend.Handles
	// logger はロガー。
	logger *zap.Logger
	// cfg は設定。
	cfg *config.Config
}

// NewServer はミドルウェアとルートを組み立てたサーバーを生成する。
// 返したサーバーのパイプラインは以後変更しない。
func NewServer(cfg *config.Config, handles *backend.Handles, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	// リダイレクトはCORSやエラーのステージを通らないため、末尾スラッシュはルート側で受ける。
	router.RedirectTrailingSlash = false
	// エラーステージより外側に置き、確定したステータスを記録させる。
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())
	// 後処理は登録と逆順に動くため、エラーステージは失敗しうるステージの最も外側に置く。
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.BodyParser(cfg.BodyLimit))

	s := &Server{
		router:  router,
		handles: handles,
		logger:  logger,
		cfg:     cfg,
	}
	s.setupRoutes()

	return s
}

// Handler はパイプラインをhttp.Handlerとして返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// requireStore はドキュメントストアがない場合に503で中断するミドルウェア。
func (s *Server) requireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.handles == nil || s.handles.Store == nil || s.handles.Auth == nil {
			_ = c.Error(errBackendUnavailable)
			c.Abort()
			return
		}
		c.Next()
	}
}

// authenticate はバックエンドの認証サービスでトークンを検証するミドルウェア。
func (s *Server) authenticate() gin.HandlerFunc {
	return middleware.Authenticate(func(ctx context.Context, token string) (middleware.Principal, error) {
		id, err := s.handles.Auth.VerifyToken(ctx, token)
		if err != nil {
			return middleware.Principal{}, err
		}
		return middleware.Principal{UID: id.UID, Email: id.Email}, nil
	})
}

// storeError はストアのエラーをクライアント向けのエラーに変換する。
func storeError(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return httperror.Wrap(err, http.StatusNotFound, "Not Found")
	}
	return httperror.Wrap(err, http.StatusInternalServerError, "")
}

// documents はドキュメントのスライスをレスポンス用のマップに変換する。
func documents(docs []docstore.Document) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Map())
	}
	return out
}

// bodyObject は解析済みボディをオブジェクトとして取り出す。
// オブジェクトでない場合は400エラーを積んでfalseを返す。
func bodyObject(c *gin.Context) (map[string]any, bool) {
	m, ok := middleware.BodyMap(c)
	if !ok {
		_ = c.Error(httperror.BadRequest("Request body must be a JSON object"))
		return nil, false
	}
	delete(m, "id")
	return m, true
}
