// Package migration は埋め込みSQLファイルによるSQLiteのスキーマ移行を提供する。
//
// ストアごとに履歴テーブルを分けられるため、同じデータベースに
// 複数のストアが同居しても互いの適用履歴を干渉させない。
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultTable は履歴テーブル名の既定値。
const DefaultTable = "schema_migrations"

// tableNamePattern は履歴テーブル名として受け付ける識別子。
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// File は1つのマイグレーションファイル。
type File struct {
	// Version はファイル名先頭の連番。
	Version int
	// Name はファイル名のうち連番と拡張子を除いた部分。
	Name string
	path string
}

// Migrator はfsys内のdirにある *.up.sql を履歴テーブルに記録しながら適用する。
type Migrator struct {
	// FS はSQLファイルを含むファイルシステム。
	FS fs.FS
	// Dir はSQLファイルのディレクトリ。
	Dir string
	// Table は履歴テーブル名。空の場合は DefaultTable。
	Table string
	// Logger はロガー。nilの場合は出力しない。
	Logger *zap.Logger
}

// Run はデフォルトの履歴テーブルで未適用のマイグレーションを適用する。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger *zap.Logger) error {
	_, err := Migrator{FS: fsys, Dir: dir, Logger: logger}.Up(ctx, db)
	return err
}

// Up は未適用のマイグレーションをバージョン順に適用し、適用したファイルを返す。
// ファイル名形式: 000001_description.up.sql
func (m Migrator) Up(ctx context.Context, db *sql.DB) ([]File, error) {
	table := m.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("履歴テーブル名が不正です: %q", table)
	}
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := Collect(m.FS, m.Dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}
	if err := ensureTable(ctx, db, table); err != nil {
		return nil, fmt.Errorf("履歴テーブル %s の作成に失敗: %w", table, err)
	}
	applied, err := appliedVersions(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	var done []File
	for _, f := range files {
		if applied[f.Version] {
			continue
		}
		if err := apply(ctx, db, m.FS, table, f); err != nil {
			return done, fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", f.Version, f.Name, err)
		}
		logger.Info("マイグレーションを適用しました",
			zap.String("table", table),
			zap.Int("version", f.Version),
			zap.String("name", f.Name),
		)
		done = append(done, f)
	}
	if len(done) == 0 {
		logger.Debug("適用するマイグレーションはありません", zap.String("table", table), zap.Int("known", len(files)))
	}
	return done, nil
}

func ensureTable(ctx context.Context, db *sql.DB, table string) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

func appliedVersions(ctx context.Context, db *sql.DB, table string) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM "+table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Collect はディレクトリからup.sqlファイルを集めてバージョン順に並べる。
// 形式に合わないファイルは無視する。同じバージョンが2つある場合はエラー。
func Collect(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []File
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		prefix, rest, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("バージョン %d が重複しています: %s, %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()
		files = append(files, File{
			Version: version,
			Name:    strings.TrimSuffix(rest, ".up.sql"),
			path:    path.Join(dir, entry.Name()),
		})
	}

	slices.SortFunc(files, func(a, b File) int { return a.Version - b.Version })
	return files, nil
}

// apply は1つのマイグレーションと履歴の記録を同じトランザクションで行う。
func apply(ctx context.Context, db *sql.DB, fsys fs.FS, table string, f File) error {
	content, err := fs.ReadFile(fsys, f.path)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (version, name) VALUES (?, ?)", f.Version, f.Name); err != nil {
		return fmt.Errorf("履歴の記録に失敗: %w", err)
	}
	return tx.Commit()
}
