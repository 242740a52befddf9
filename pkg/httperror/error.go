// Package httperror はHTTPステータスコードを保持するエラー型を提供する。
//
// ルートハンドラは c.Error(httperror.New(...)) でエラーを積み、
// パイプライン末尾のエラーハンドラが統一されたJSONエンベロープに変換する。
package httperror

import (
	"errors"
	"net/http"
)

// DefaultMessage はメッセージを持たないエラーに使う既定のメッセージ。
const DefaultMessage = "Internal Server Error"

// Error はクライアントに返すステータスコードとメッセージを持つエラー。
type Error struct {
	// Status はHTTPステータスコード。0の場合は500として扱う。
	Status int
	// Message はクライアントに返すメッセージ。
	Message string
	// Err は原因となったエラー。サーバー側のログにのみ出力する。
	Err error
}

// New はステータスコードとメッセージからエラーを生成する。
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap は原因エラーを保持したままステータスコードとメッセージを付与する。
func Wrap(err error, status int, message string) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// NotFound は404エラーを生成する。
func NotFound() *Error {
	return New(http.StatusNotFound, "Not Found")
}

// BadRequest は400エラーを生成する。
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode はHTTPステータスコードを返す。
func (e *Error) StatusCode() int {
	return e.Status
}

// ClientMessage はクライアントに返すメッセージを返す。
func (e *Error) ClientMessage() string {
	return e.Message
}

// statusCoder はステータスコードを持つエラーが満たすインターフェース。
type statusCoder interface {
	StatusCode() int
}

// clientMessager はクライアント向けメッセージを持つエラーが満たすインターフェース。
type clientMessager interface {
	ClientMessage() string
}

// StatusOf はエラーチェーンからステータスコードを取り出す。
// 見つからない場合、または範囲外の値の場合は500を返す。
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if s := sc.StatusCode(); s >= 400 && s <= 599 {
			return s
		}
	}
	return http.StatusInternalServerError
}

// MessageOf はエラーチェーンからクライアント向けメッセージを取り出す。
// ステータス付きエラーはClientMessageを、それ以外はError()を使う。
// どちらも空の場合は DefaultMessage を返す。
func MessageOf(err error) string {
	if err == nil {
		return DefaultMessage
	}
	var cm clientMessager
	if errors.As(err, &cm) {
		if m := cm.ClientMessage(); m != "" {
			return m
		}
		return DefaultMessage
	}
	if m := err.Error(); m != "" {
		return m
	}
	return DefaultMessage
}
