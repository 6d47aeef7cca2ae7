// Package session はサーバーサイドセッションのライフサイクルを管理します。
//
// セッションは耐久ストレージ（Postgres）に保存され、クライアントは署名付きの
// 不透明トークンをクッキーで保持するだけです。ログイン・登録時には必ず
// 新しいセッションIDを発行し、セッション固定攻撃を防ぎます。
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound は該当するセッションが存在しないことを示します。
var ErrNotFound = errors.New("session not found")

// Session はサーバーサイドのセッションレコードです。
type Session struct {
	ID         string
	UserID     *uuid.UUID
	CSRFSecret string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Authenticated はユーザーに紐付いているかを返します。
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != nil
}

// Expired は有効期限切れかを返します。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Store はセッションの永続化インターフェースです。
type Store interface {
	Create(ctx context.Context, s *Session) error
	// Get は ID でセッションを取得します。存在しない場合は ErrNotFound。
	Get(ctx context.Context, id string) (*Session, error)
	// BindUser はセッションをユーザーに紐付けます。
	BindUser(ctx context.Context, id string, userID uuid.UUID) error
	Delete(ctx context.Context, id string) error
	// Touch は有効期限を延長します（スライディング有効期限用）。
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	// DeleteExpired は期限切れレコードを削除し、削除件数を返します。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
