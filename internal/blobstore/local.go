package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore はローカルディレクトリにファイルを保存するStore。
type LocalStore struct {
	dir string
}

// NewLocal はディレクトリを作成してStoreを生成する。
func NewLocal(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put はファイルを保存する。nameに含まれる ".." によるディレクトリ外への書き込みは拒否する。
func (s *LocalStore) Put(_ context.Context, name, _ string, r io.Reader) (Object, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return Object{}, fmt.Errorf("不正なオブジェクト名: %q", name)
	}

	path := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Object{}, fmt.Errorf("ディレクトリの作成に失敗: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("ファイル %s の作成に失敗: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, fmt.Errorf("ファイル %s の書き込みに失敗: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Object{
		Name: filepath.ToSlash(clean),
		URL:  (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		Size: n,
	}, nil
}
