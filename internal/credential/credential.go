// Package credential はバックエンドに接続するためのサービスアカウント認証情報を解決する。
//
// 認証情報は環境変数に格納されたJSON、個別の環境変数、実行ファイルと同じ
// ディレクトリのJSONファイルのいずれか1つから、この優先順位で組み立てる。
// 複数のソースを混ぜ合わせることはない。
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// serviceAccountType はサービスアカウント鍵のtypeフィールドの値。
const serviceAccountType = "service_account"

// ServiceCredential はGoogleのサービスアカウント鍵ドキュメントを表す。
// JSONのフィールド名は鍵ファイルの形式に合わせている。
type ServiceCredential struct {
	// Type は鍵の種類。常に "service_account"。
	Type string `json:"type"`
	// ProjectID はプロジェクトID。
	ProjectID string `json:"project_id"`
	// PrivateKeyID は秘密鍵の識別子。
	PrivateKeyID string `json:"private_key_id"`
	// PrivateKey はPEM形式の秘密鍵。
	PrivateKey string `json:"private_key"`
	// ClientEmail はサービスアカウントのメールアドレス。
	ClientEmail string `json:"client_email"`

	ClientID                string `json:"client_id,omitempty"`
	AuthURI                 string `json:"auth_uri,omitempty"`
	TokenURI                string `json:"token_uri,omitempty"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url,omitempty"`
	ClientX509CertURL       string `json:"client_x509_cert_url,omitempty"`
	UniverseDomain          string `json:"universe_domain,omitempty"`
}

// NormalizePrivateKey は秘密鍵中のリテラルな "\n" を実際の改行に置き換える。
// 環境変数経由の鍵はエスケープされた改行を含むことが多く、そのままでは署名に使えない。
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// normalize は秘密鍵の改行を正規化した認証情報を返す。
func (c ServiceCredential) normalize() ServiceCredential {
	c.PrivateKey = NormalizePrivateKey(c.PrivateKey)
	return c
}

// Validate は認証情報がバックエンドの署名層に受け入れられる形かを検証する。
func (c ServiceCredential) Validate() error {
	var errs []error
	if c.Type != serviceAccountType {
		errs = append(errs, fmt.Errorf("typeが %q ではありません: %q", serviceAccountType, c.Type))
	}
	if c.ProjectID == "" {
		errs = append(errs, errors.New("project_idが空です"))
	}
	if c.ClientEmail == "" {
		errs = append(errs, errors.New("client_emailが空です"))
	}
	if c.PrivateKey == "" {
		errs = append(errs, errors.New("private_keyが空です"))
	} else if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.PrivateKey)); err != nil {
		errs = append(errs, fmt.Errorf("private_keyの解析に失敗: %w", err))
	}
	return errors.Join(errs...)
}

// JSON は認証情報をサービスアカウント鍵のJSONとしてシリアライズする。
func (c ServiceCredential) JSON() ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("認証情報のシリアライズに失敗: %w", err)
	}
	return b, nil
}

// Source は認証情報の取得元を表す。
type Source int

const (
	// SourceBlob は1つの環境変数に格納されたJSONドキュメント。
	SourceBlob Source = iota + 1
	// SourceFields は個別の環境変数から組み立てた認証情報。
	SourceFields
	// SourceFile はローカルのJSONファイル。
	SourceFile
)

func (s Source) String() string {
	switch s {
	case SourceBlob:
		return "blob"
	case SourceFields:
		return "fields"
	case SourceFile:
		return "file"
	default:
		return "unknown"
	}
}

// Resolved は解決済みの認証情報と、その取得元を保持する。
type Resolved struct {
	// Source は認証情報の取得元。
	Source Source
	// Origin は取得元の環境変数名またはファイルパス。
	Origin string
	// Credential は正規化・検証済みの認証情報。
	Credential ServiceCredential
}

// SourceError は特定のソースから認証情報を得られなかったことを表す。
type SourceError struct {
	// Source は選択されたソース。
	Source Source
	// Origin は期待していた環境変数名またはファイルパス。
	Origin string
	// Err は原因エラー。
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("認証情報(%s: %s)を利用できません: %v", e.Source, e.Origin, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
