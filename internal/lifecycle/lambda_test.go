package lifecycle

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLambdaHandler はLambdaイベントとHTTPの変換を検証する。
func TestLambdaHandler(t *testing.T) {
	t.Parallel()

	t.Run("リクエストが変換されハンドラに渡ること", func(t *testing.T) {
		t.Parallel()

		var seen *http.Request
		var seenBody string
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r
			b, _ := io.ReadAll(r.Body)
			seenBody = string(b)
			w.Header().Set("Content-Type", "application/json")
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		res, err := LambdaHandler(h)(context.Background(), events.APIGatewayV2HTTPRequest{
			RawPath:        "/api/employees",
			RawQueryString: "a=1&b=2",
			Headers: map[string]string{
				"content-type": "application/json",
				"host":         "api.example.com",
			},
			Cookies: []string{"x=1", "y=2"},
			Body:    `{"name":"Alice"}`,
			RequestContext: events.APIGatewayV2HTTPRequestContext{
				HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
					Method:   http.MethodPost,
					SourceIP: "203.0.113.1",
				},
			},
		})
		require.NoError(t, err)

		require.NotNil(t, seen)
		assert.Equal(t, http.MethodPost, seen.Method)
		assert.Equal(t, "/api/employees", seen.URL.Path)
		assert.Equal(t, "2", seen.URL.Query().Get("b"))
		assert.Equal(t, "application/json", seen.Header.Get("Content-Type"))
		assert.Equal(t, "api.example.com", seen.Host)
		assert.Equal(t, "x=1; y=2", seen.Header.Get("Cookie"))
		assert.Equal(t, "203.0.113.1:0", seen.RemoteAddr)
		assert.Equal(t, `{"name":"Alice"}`, seenBody)

		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Equal(t, `{"ok":true}`, res.Body)
		assert.False(t, res.IsBase64Encoded)
		assert.Equal(t, "application/json", res.Headers["Content-Type"])
		assert.Equal(t, []string{"session=abc"}, res.Cookies)
	})

	t.Run("Base64のボディがデコードされること", func(t *testing.T) {
		t.Parallel()

		var seenBody []byte
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte{0xff, 0x00, 0x01})
		})

		res, err := LambdaHandler(h)(context.Background(), events.APIGatewayV2HTTPRequest{
			RawPath:         "/api/uploads",
			Body:            base64.StdEncoding.EncodeToString([]byte{0x01, 0x02}),
			IsBase64Encoded: true,
			RequestContext: events.APIGatewayV2HTTPRequestContext{
				HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodPost},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, []byte{0x01, 0x02}, seenBody)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.True(t, res.IsBase64Encoded)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xff, 0x00, 0x01}), res.Body)
	})

	t.Run("不正なBase64はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := LambdaHandler(http.NotFoundHandler())(context.Background(), events.APIGatewayV2HTTPRequest{
			Body:            "!!!",
			IsBase64Encoded: true,
		})
		assert.Error(t, err)
	})

	t.Run("パスがない場合はルートになること", func(t *testing.T) {
		t.Parallel()

		var path string
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		})

		res, err := LambdaHandler(h)(context.Background(), events.APIGatewayV2HTTPRequest{})
		require.NoError(t, err)
		assert.Equal(t, "/", path)
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
	})
}

// TestIsText はテキスト判定を検証する。
func TestIsText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		body        []byte
		want        bool
	}{
		{contentType: "text/plain; charset=utf-8", body: []byte("hi"), want: true},
		{contentType: "application/json", body: []byte("{}"), want: true},
		{contentType: "application/problem+xml", body: []byte("<a/>"), want: true},
		{contentType: "image/png", body: []byte{0x89, 0x50}, want: false},
		{contentType: "", body: []byte("plain"), want: true},
		{contentType: "", body: []byte{0xff, 0xfe}, want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isText(tt.contentType, tt.body), tt.contentType)
	}
}
