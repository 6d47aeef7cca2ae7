package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/fuel-tracker/internal/apperr"
)

// contextKey はハンドラー間でセッションを受け渡すためのキーです。
const contextKey = "session.current"

// Middleware はリクエストごとにセッションを復元するミドルウェアを返します。
// 有効なセッションが無い場合は匿名セッションを発行してクッキーを設定します。
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(m.cookieName)

		sess, err := m.Load(c.Request.Context(), token)
		if err != nil {
			apperr.Abort(c, apperr.Internal(err))
			return
		}

		if sess == nil {
			sess, err = m.Create(c.Request.Context())
			if err != nil {
				apperr.Abort(c, apperr.Internal(err))
				return
			}
			m.SetCookie(c, sess)
		} else if m.sliding && sess.Authenticated() {
			if err := m.Touch(c.Request.Context(), sess); err != nil {
				apperr.Abort(c, apperr.Internal(err))
				return
			}
			m.SetCookie(c, sess)
		}

		c.Set(contextKey, sess)
		c.Next()
	}
}

// RequireAuth は認証済みセッションを要求するミドルウェアを返します。
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).Authenticated() {
			apperr.Abort(c, apperr.Unauthorized("Unauthorized"))
			return
		}
		c.Next()
	}
}

// FromContext はコンテキストからセッションを取り出します。
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}

// UserID は認証済みセッションのユーザーIDを返します。
// RequireAuth を通過したハンドラーからのみ呼び出してください。
func UserID(c *gin.Context) uuid.UUID {
	sess := FromContext(c)
	if sess == nil || sess.UserID == nil {
		return uuid.Nil
	}
	return *sess.UserID
}

// SetCookie はセッションクッキーを設定します。
func (m *Manager) SetCookie(c *gin.Context, sess *Session) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.Token(sess),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	// 以降のハンドラーが同一リクエスト内で参照できるよう差し替える
	c.Set(contextKey, sess)
}

// ClearCookie はセッションクッキーを破棄します。
func (m *Manager) ClearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(contextKey, (*Session)(nil))
}
