package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore はCloud FirestoreをバックエンドとするStore。
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestore はFirestoreクライアントからStoreを生成する。
func NewFirestore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// List はフィルタに一致するドキュメントを返す。
func (s *FirestoreStore) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	docs := []Document{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%sの一覧取得に失敗: %w", collection, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// Get はドキュメントを1件取得する。
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, mapError(err, "%s/%sの取得に失敗", collection, id)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Create は自動採番したIDでドキュメントを作成する。
func (s *FirestoreStore) Create(ctx context.Context, collection string, data map[string]any) (Document, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return Document{}, fmt.Errorf("%sへの作成に失敗: %w", collection, err)
	}
	return Document{ID: ref.ID, Data: data}, nil
}

// Update は既存ドキュメントにフィールドをマージする。
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	ref := s.client.Collection(collection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, data, firestore.MergeAll)
	})
	if err != nil {
		return Document{}, mapError(err, "%s/%sの更新に失敗", collection, id)
	}
	return s.Get(ctx, collection, id)
}

// Delete はドキュメントを削除する。
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		return mapError(err, "%s/%sの削除に失敗", collection, id)
	}
	return nil
}

// Close はFirestoreクライアントを閉じる。
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// mapError はNotFoundを ErrNotFound に変換し、それ以外はラップして返す。
func mapError(err error, format string, args ...any) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
