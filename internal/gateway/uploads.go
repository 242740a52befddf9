package gateway

import (
	"errors"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/kintai/internal/config"
	"github.com/nao1215/kintai/pkg/httperror"
	"github.com/nao1215/kintai/pkg/middleware"
)

// uploadsCollection はアップロードのメタデータのコレクション名。
const uploadsCollection = "uploads"

// errUploadTooLarge は上限を超えたアップロードに返すメッセージ。
const errUploadTooLarge = "Request body too large"

// handleCreateUpload はmultipartのfileフィールドを保存するハンドラを返す。
// ファイル本体はBlobsへ、メタデータはドキュメントストアへ保存する。
func (s *Server) handleCreateUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.handles.Blobs == nil {
			_ = c.Error(errBackendUnavailable)
			return
		}

		limit := s.cfg.UploadLimit
		if limit <= 0 {
			limit = config.DefaultUploadLimit
		}
		if c.Request.ContentLength > limit {
			_ = c.Error(httperror.New(http.StatusRequestEntityTooLarge, errUploadTooLarge))
			return
		}
		// Content-Lengthのないチャンク転送もあるため、読み込み自体にも上限をかける。
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				_ = c.Error(httperror.Wrap(err, http.StatusRequestEntityTooLarge, errUploadTooLarge))
				return
			}
			_ = c.Error(httperror.Wrap(err, http.StatusBadRequest, "file is required"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			_ = c.Error(httperror.Wrap(err, http.StatusBadRequest, "file could not be read"))
			return
		}
		defer f.Close()

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		// ブラウザによってはパス付きのファイル名を送るため、最後の要素だけ使う。
		filename := path.Base(fh.Filename)
		if filename == "." || filename == "/" || filename == ".." {
			filename = "file"
		}
		name := "uploads/" + uuid.NewString() + "/" + filename

		obj, err := s.handles.Blobs.Put(c.Request.Context(), name, contentType, f)
		if err != nil {
			_ = c.Error(httperror.Wrap(err, http.StatusInternalServerError, ""))
			return
		}

		doc, err := s.handles.Store.Create(c.Request.Context(), uploadsCollection, map[string]any{
			"name":         obj.Name,
			"originalName": fh.Filename,
			"contentType":  contentType,
			"size":         obj.Size,
			"url":          obj.URL,
			"uploadedBy":   middleware.GetUserID(c),
			"createdAt":    time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusCreated, doc.Map())
	}
}

func (s *Server) handleListUploads() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.handles.Store.List(c.Request.Context(), uploadsCollection)
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, documents(docs))
	}
}

func (s *Server) handleGetUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.handles.Store.Get(c.Request.Context(), uploadsCollection, c.Param("id"))
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, doc.Map())
	}
}
