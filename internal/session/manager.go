package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Manager はセッションの発行・検証・再生成・破棄を担います。
type Manager struct {
	store      Store
	secret     []byte
	ttl        time.Duration
	sliding    bool
	cookieName string
	secure     bool
}

// ManagerOptions は Manager の設定です。
type ManagerOptions struct {
	Secret     string
	TTL        time.Duration
	Sliding    bool
	CookieName string
	// Secure はクッキーに Secure 属性を付けるか（release モードで true）
	Secure bool
}

// NewManager は Manager を作成します。
func NewManager(store Store, opts ManagerOptions) *Manager {
	return &Manager{
		store:      store,
		secret:     []byte(opts.Secret),
		ttl:        opts.TTL,
		sliding:    opts.Sliding,
		cookieName: opts.CookieName,
		secure:     opts.Secure,
	}
}

// CookieName はセッションクッキー名を返します。
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Create は匿名セッションを新規に発行します。
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	secret, err := newCSRFSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:         id,
		CSRFSecret: secret,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load はクッキー値からセッションを復元します。
// トークンが欠落・不正・期限切れの場合は匿名扱い（nil, nil）とし、
// 呼び出し側へエラーを伝播するのはストア障害のみです。
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	id, ok := parseToken(token, m.secret)
	if !ok {
		return nil, nil
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if sess.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return sess, nil
}

// Regenerate は新しいセッションIDとCSRFシークレットを発行し、
// 古いセッションを破棄します。ユーザーの紐付け以外の状態は引き継ぎません。
// ログイン・登録の成功時に必ず呼び、セッション固定攻撃を防ぎます。
func (m *Manager) Regenerate(ctx context.Context, old *Session) (*Session, error) {
	fresh, err := m.Create(ctx)
	if err != nil {
		return nil, err
	}

	if old != nil {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			return nil, fmt.Errorf("failed to drop previous session: %w", err)
		}
	}
	return fresh, nil
}

// BindUser はセッションをユーザーに紐付け、匿名から認証済みへ遷移させます。
func (m *Manager) BindUser(ctx context.Context, sess *Session, userID uuid.UUID) error {
	if err := m.store.BindUser(ctx, sess.ID, userID); err != nil {
		return err
	}
	sess.UserID = &userID
	return nil
}

// Destroy はセッションをストレージから削除します。
// 削除済みIDでの再検索は必ず失敗します。
func (m *Manager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	return m.store.Delete(ctx, sess.ID)
}

// Touch は有効期限を現在時刻から TTL ぶん延長します。
func (m *Manager) Touch(ctx context.Context, sess *Session) error {
	expiresAt := time.Now().UTC().Add(m.ttl)
	if err := m.store.Touch(ctx, sess.ID, expiresAt); err != nil {
		return err
	}
	sess.ExpiresAt = expiresAt
	return nil
}

// Token はクッキーに格納する署名付きトークンを返します。
func (m *Manager) Token(sess *Session) string {
	return signToken(sess.ID, m.secret)
}

// DeleteExpired は期限切れセッションを掃除します。
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, time.Now().UTC())
}

func newCSRFSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
