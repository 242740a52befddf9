package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kintai/pkg/httperror"
)

// employeesCollection は従業員のコレクション名。
const employeesCollection = "employees"

func (s *Server) handleListEmployees() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.handles.Store.List(c.Request.Context(), employeesCollection)
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, documents(docs))
	}
}

// handleCreateEmployee は従業員を登録するハンドラを返す。nameは必須。
func (s *Server) handleCreateEmployee() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bodyObject(c)
		if !ok {
			return
		}
		if name, _ := body["name"].(string); strings.TrimSpace(name) == "" {
			_ = c.Error(httperror.BadRequest("name is required"))
			return
		}
		body["createdAt"] = time.Now().UTC().Format(time.RFC3339)

		doc, err := s.handles.Store.Create(c.Request.Context(), employeesCollection, body)
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusCreated, doc.Map())
	}
}

func (s *Server) handleGetEmployee() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.handles.Store.Get(c.Request.Context(), employeesCollection, c.Param("id"))
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, doc.Map())
	}
}

// handleUpdateEmployee は従業員のフィールドを部分更新するハンドラを返す。
func (s *Server) handleUpdateEmployee() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bodyObject(c)
		if !ok {
			return
		}
		if v, exists := body["name"]; exists {
			if name, _ := v.(string); strings.TrimSpace(name) == "" {
				_ = c.Error(httperror.BadRequest("name must not be empty"))
				return
			}
		}
		body["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

		doc, err := s.handles.Store.Update(c.Request.Context(), employeesCollection, c.Param("id"), body)
		if err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.JSON(http.StatusOK, doc.Map())
	}
}

func (s *Server) handleDeleteEmployee() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.handles.Store.Delete(c.Request.Context(), employeesCollection, c.Param("id")); err != nil {
			_ = c.Error(storeError(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}
