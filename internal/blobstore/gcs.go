package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
)

// GCSStore はCloud Storageのバケットにファイルを保存するStore。
type GCSStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewGCS はバケットハンドルからStoreを生成する。
func NewGCS(bucket *storage.BucketHandle, bucketName string) *GCSStore {
	return &GCSStore{bucket: bucket, bucketName: bucketName}
}

// Put はオブジェクトをバケットに書き込む。
func (s *GCSStore) Put(ctx context.Context, name, contentType string, r io.Reader) (Object, error) {
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("オブジェクト %s の書き込みに失敗: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("オブジェクト %s の確定に失敗: %w", name, err)
	}

	return Object{
		Name: name,
		URL:  fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, (&url.URL{Path: name}).EscapedPath()),
		Size: n,
	}, nil
}
