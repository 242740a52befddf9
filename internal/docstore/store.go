// Package docstore はコレクション単位でJSONドキュメントを保存するストアを提供する。
//
// 本番ではCloud Firestore、ローカル開発とテストではSQLiteを使う。
// ゲートウェイのルートハンドラはStoreインターフェースだけに依存する。
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound は指定したドキュメントが存在しないことを表す。
var ErrNotFound = errors.New("ドキュメントが見つかりません")

// Document はコレクション内の1件のドキュメント。
type Document struct {
	// ID はコレクション内で一意なドキュメントID。
	ID string
	// Data はドキュメントのフィールド。
	Data map[string]any
}

// Map はIDを "id" フィールドとして含めたマップを返す。レスポンスのJSONに使う。
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d.Data)+1)
	for k, v := range d.Data {
		m[k] = v
	}
	m["id"] = d.ID
	return m
}

// Filter はフィールドの等価条件。
type Filter struct {
	Field string
	Value any
}

// Store はドキュメントストアの操作。
type Store interface {
	// List はフィルタにすべて一致するドキュメントを返す。
	List(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Get はドキュメントを1件取得する。存在しない場合は ErrNotFound を返す。
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create は新しいIDでドキュメントを作成する。
	Create(ctx context.Context, collection string, data map[string]any) (Document, error)
	// Update は既存ドキュメントにフィールドをマージする。存在しない場合は ErrNotFound を返す。
	Update(ctx context.Context, collection, id string, data map[string]any) (Document, error)
	// Delete はドキュメントを削除する。存在しない場合は ErrNotFound を返す。
	Delete(ctx context.Context, collection, id string) error
	// Close は接続を解放する。
	Close() error
}
