// Package blobstore はアップロードされたファイルの保存先を提供する。
package blobstore

import (
	"context"
	"io"
)

// Object は保存済みのオブジェクト。
type Object struct {
	// Name はバケット内またはディレクトリ内のオブジェクト名。
	Name string
	// URL はオブジェクトを参照するURL。
	URL string
	// Size は保存したバイト数。
	Size int64
}

// Store はファイルを保存するストア。
type Store interface {
	// Put はrの内容をnameとして保存する。
	Put(ctx context.Context, name, contentType string, r io.Reader) (Object, error)
}
