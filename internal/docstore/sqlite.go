package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/kintai/pkg/migration"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

// migrationTable はドキュメントストアのスキーマ履歴テーブル。
const migrationTable = "docstore_migrations"

// SQLiteStore はSQLiteにJSONとしてドキュメントを保存するStore。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite はSQLiteデータベースを開き、スキーマを適用する。
// dsnに ":memory:" を指定するとインメモリデータベースになる。
func OpenSQLite(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// インメモリDBは接続ごとに別のDBになるため、接続を1本に固定する。
	db.SetMaxOpenConns(1)

	m := migration.Migrator{FS: migrations, Dir: "migrations", Table: migrationTable, Logger: logger}
	if _, err := m.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// List はフィルタに一致するドキュメントを作成順に返す。
func (s *SQLiteStore) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	query := "SELECT id, data FROM documents WHERE collection = ?"
	args := []any{collection}
	for _, f := range filters {
		query += " AND json_extract(data, ?) = ?"
		args = append(args, jsonPath(f.Field), f.Value)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの一覧取得に失敗: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	docs := []Document{}
	for rows.Next() {
		var (
			id  string
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("%sの読み取りに失敗: %w", collection, err)
		}
		data, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	return docs, rows.Err()
}

// Get はドキュメントを1件取得する。
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("%s/%sの取得に失敗: %w", collection, id, err)
	}
	data, err := decode(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

// Create はUUIDを採番してドキュメントを作成する。
func (s *SQLiteStore) Create(ctx context.Context, collection string, data map[string]any) (Document, error) {
	id := uuid.New().String()
	raw, err := json.Marshal(data)
	if err != nil {
		return Document{}, fmt.Errorf("ドキュメントのシリアライズに失敗: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)", collection, id, string(raw)); err != nil {
		return Document{}, fmt.Errorf("%sへの作成に失敗: %w", collection, err)
	}
	// 呼び出し側と同じ表現にそろえるため、保存したJSONから読み直す。
	stored, err := decode(string(raw))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: stored}, nil
}

// Update は既存ドキュメントにフィールドをマージする。
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("%s/%sの取得に失敗: %w", collection, id, err)
	}

	current, err := decode(raw)
	if err != nil {
		return Document{}, err
	}
	maps.Copy(current, data)

	merged, err := json.Marshal(current)
	if err != nil {
		return Document{}, fmt.Errorf("ドキュメントのシリアライズに失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET data = ?, updated_at = datetime('now') WHERE collection = ? AND id = ?",
		string(merged), collection, id); err != nil {
		return Document{}, fmt.Errorf("%s/%sの更新に失敗: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("コミットに失敗: %w", err)
	}

	stored, err := decode(string(merged))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: stored}, nil
}

// Delete はドキュメントを削除する。
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("%s/%sの削除に失敗: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// jsonPath はフィールド名をSQLiteのJSONパスに変換する。
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, ``) + `"`
}

func decode(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("ドキュメントのデシリアライズに失敗: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
