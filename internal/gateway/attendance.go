package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kintai/internal/docstore"
	"github.com/nao1215/kintai/pkg/httperror"
	"github.com/nao1215/kintai/pkg/middleware"
)

// attendanceCollection は勤怠記録のコレクション名。
const attendanceCollection = "attendance"

// handleListAttendance は勤怠記録の一覧を返すハンドラを返す。
// クエリパラメータ employeeId と date で絞り込める。
func (s *Server) handleListAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters []docstore.Filter
		for _, field := range []string{"employeeId", "date"} {
			if v := c.Query(field); v != "" {
				filters = append(filters, docstore.Filter{Field: field, Value: v})
			}
		}

		docs, err := s.handles.Store.List(c.Request.Context(), attendanceCollection, filters...)
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, documents(docs))
	}
}

// handleCreateAttendance は勤怠記録を作成するハンドラを返す。
func (s *Server) handleCreateAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bodyObject(c)
		if !ok {
			return
		}
		if v, _ := body["employeeId"].(string); v == "" {
			_ = c.Error(httperror.BadRequest("employeeId is required"))
			return
		}
		body["recordedBy"] = middleware.GetUserID(c)
		body["createdAt"] = time.Now().UTC().Format(time.RFC3339)

		doc, err := s.handles.Store.Create(c.Request.Context(), attendanceCollection, body)
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusCreated, doc.Map())
	}
}

// handleGetAttendance は勤怠記録を1件返すハンドラを返す。
func (s *Server) handleGetAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.handles.Store.Get(c.Request.Context(), attendanceCollection, c.Param("id"))
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, doc.Map())
	}
}

// handleDeleteAttendance は勤怠記録を削除するハンドラを返す。
func (s *Server) handleDeleteAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.handles.Store.Delete(c.Request.Context(), attendanceCollection, c.Param("id")); err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}
