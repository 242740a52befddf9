// Package gateway は勤怠APIのHTTPパイプラインとルートを提供する。
//
// ミドルウェアの組み立て、勤怠・従業員・アップロードの各ルートグループ、
// ヘルスチェックを担当する。ルートハンドラはレスポンスを直接書かずに
// エラーをコンテキストに積み、パイプラインのエラーステージが
// {"error":{"message","status"}} 形式に変換する。
package gateway
