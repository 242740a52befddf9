package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// BlobEnv は認証情報ドキュメント全体を保持する環境変数名。
	BlobEnv = "FIREBASE_SERVICE_ACCOUNT_JSON"
	// FileName はフォールバック時に読み込む認証情報ファイル名。
	FileName = "serviceAccount.json"
	// fieldsMarker はフィールド単位の組み立てを示す環境変数名（接頭辞を除く）。
	fieldsMarker = "PRIVATE_KEY"
)

// fieldPrefixes はフィールド単位の環境変数に付く接頭辞。先頭から順に検査する。
var fieldPrefixes = []string{"", "FIREBASE_"}

// Resolver は環境変数とファイルから認証情報を解決する。
type Resolver struct {
	// Lookup は環境変数を参照する関数。nilの場合は os.LookupEnv を使う。
	Lookup func(key string) (string, bool)
	// FilePath はフォールバック時に読み込むファイルのパス。
	// 空の場合は DefaultFilePath を使う。
	FilePath string
	// ReadFile はファイルを読み込む関数。nilの場合は os.ReadFile を使う。
	ReadFile func(name string) ([]byte, error)
}

// DefaultFilePath は実行ファイルと同じディレクトリにある認証情報ファイルのパスを返す。
// 作業ディレクトリには依存しない。
func DefaultFilePath() string {
	exe, err := os.Executable()
	if err != nil {
		return FileName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), FileName)
}

// Resolve は優先順位に従って最初に存在するソースから認証情報を組み立てる。
//
//  1. FIREBASE_SERVICE_ACCOUNT_JSON
//  2. PRIVATE_KEY（または FIREBASE_PRIVATE_KEY）を目印とした個別の環境変数
//  3. 認証情報ファイル
//
// 存在するソースが不正な場合は次のソースに進まず、*SourceError を返す。
func (r Resolver) Resolve() (*Resolved, error) {
	if raw, ok := r.present(BlobEnv); ok {
		return r.fromBlob(raw)
	}
	for _, prefix := range fieldPrefixes {
		if _, ok := r.present(prefix + fieldsMarker); ok {
			return r.fromFields(prefix)
		}
	}
	return r.fromFile()
}

func (r Resolver) lookup(key string) (string, bool) {
	if r.Lookup == nil {
		return os.LookupEnv(key)
	}
	return r.Lookup(key)
}

// present は環境変数が設定され、かつ空白以外の値を持つかを返す。
func (r Resolver) present(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// get は環境変数の値をそのまま返す。未設定の場合は空文字列を返す。
func (r Resolver) get(key string) string {
	v, _ := r.lookup(key)
	return v
}

func (r Resolver) fromBlob(raw string) (*Resolved, error) {
	var cred ServiceCredential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, &SourceError{Source: SourceBlob, Origin: BlobEnv, Err: fmt.Errorf("JSONの解析に失敗: %w", err)}
	}
	return finish(SourceBlob, BlobEnv, cred)
}

func (r Resolver) fromFields(prefix string) (*Resolved, error) {
	cred := ServiceCredential{
		Type:                    r.get(prefix + "TYPE"),
		ProjectID:               r.get(prefix + "PROJECT_ID"),
		PrivateKeyID:            r.get(prefix + "PRIVATE_KEY_ID"),
		PrivateKey:              r.get(prefix + "PRIVATE_KEY"),
		ClientEmail:             r.get(prefix + "CLIENT_EMAIL"),
		ClientID:                r.get(prefix + "CLIENT_ID"),
		AuthURI:                 r.get(prefix + "AUTH_URI"),
		TokenURI:                r.get(prefix + "TOKEN_URI"),
		AuthProviderX509CertURL: r.get(prefix + "AUTH_PROVIDER_X509_CERT_URL"),
		ClientX509CertURL:       r.get(prefix + "CLIENT_X509_CERT_URL"),
		UniverseDomain:          r.get(prefix + "UNIVERSE_DOMAIN"),
	}
	return finish(SourceFields, prefix+fieldsMarker, cred)
}

func (r Resolver) fromFile() (*Resolved, error) {
	path := r.FilePath
	if path == "" {
		path = DefaultFilePath()
	}
	readFile := r.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	b, err := readFile(path)
	if err != nil {
		return nil, &SourceError{Source: SourceFile, Origin: path, Err: fmt.Errorf("ファイルの読み込みに失敗: %w", err)}
	}
	var cred ServiceCredential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, &SourceError{Source: SourceFile, Origin: path, Err: fmt.Errorf("JSONの解析に失敗: %w", err)}
	}
	return finish(SourceFile, path, cred)
}

// finish は秘密鍵を正規化して検証し、解決結果を組み立てる。
func finish(source Source, origin string, cred ServiceCredential) (*Resolved, error) {
	cred = cred.normalize()
	if err := cred.Validate(); err != nil {
		return nil, &SourceError{Source: source, Origin: origin, Err: err}
	}
	return &Resolved{Source: source, Origin: origin, Credential: cred}, nil
}
