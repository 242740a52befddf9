package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/kintai/pkg/httperror"
)

// bodyKey はGinコンテキストに解析済みボディを格納するキー。
const bodyKey = "body"

// DefaultBodyLimit はボディサイズ上限の既定値(1MiB)。
const DefaultBodyLimit int64 = 1 << 20

// BodyParser はJSONとURLエンコード形式のリクエストボディを解析するGinミドルウェアを返す。
//
// 解析結果は Body で取得できる。元のボディは読み直せるように復元する。
// JSONはオブジェクトか配列のみを受け付け、それ以外は400とする。
// limitを超えるボディは413とする。multipartなど他の形式は解析せずに通過させる。
func BodyParser(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil {
			c.Next()
			return
		}

		switch mediaType {
		case "application/json":
			raw, ok := readBody(c, limit)
			if !ok {
				return
			}
			if len(bytes.TrimSpace(raw)) == 0 {
				c.Set(bodyKey, map[string]any{})
				break
			}
			v, err := parseStrictJSON(raw)
			if err != nil {
				_ = c.Error(httperror.Wrap(err, http.StatusBadRequest, "Invalid request body"))
				c.Abort()
				return
			}
			c.Set(bodyKey, v)
		case "application/x-www-form-urlencoded":
			raw, ok := readBody(c, limit)
			if !ok {
				return
			}
			values, err := url.ParseQuery(string(raw))
			if err != nil {
				_ = c.Error(httperror.Wrap(err, http.StatusBadRequest, "Invalid request body"))
				c.Abort()
				return
			}
			c.Set(bodyKey, formToMap(values))
		}

		c.Next()
	}
}

// readBody は上限付きでボディを読み込み、後続のために復元する。
// 失敗した場合はエラーを積んで中断し、falseを返す。
func readBody(c *gin.Context, limit int64) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(httperror.Wrap(err, http.StatusRequestEntityTooLarge, "Request body too large"))
		} else {
			_ = c.Error(httperror.Wrap(err, http.StatusBadRequest, "Invalid request body"))
		}
		c.Abort()
		return nil, false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, true
}

// parseStrictJSON はオブジェクトか配列のJSONだけを受け付ける。
func parseStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, errors.New("JSONのトップレベルはオブジェクトか配列である必要があります")
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// formToMap はフォーム値を、値が1つのキーは文字列、複数のキーはスライスとしたマップに変換する。
func formToMap(values url.Values) map[string]any {
	m := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			m[k] = vs[0]
			continue
		}
		m[k] = vs
	}
	return m
}

// Body は BodyParser が解析したボディを返す。解析されていない場合はnil。
func Body(c *gin.Context) any {
	v, _ := c.Get(bodyKey)
	return v
}

// BodyMap は解析済みボディがオブジェクトの場合にマップとして返す。
func BodyMap(c *gin.Context) (map[string]any, bool) {
	m, ok := Body(c).(map[string]any)
	return m, ok
}
