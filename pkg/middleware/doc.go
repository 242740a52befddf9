// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// CORS、リクエストボディの解析、ベアラートークン認証、リクエストID、
// アクセスログ、パニックリカバリ、そしてパイプライン末尾でエラーを
// 統一されたJSONエンベロープに変換するエラーハンドラを含む。
package middleware
