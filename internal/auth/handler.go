// Package auth は登録・ログイン・ログアウト・本人確認のワークフローを提供します。
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fuel-tracker/internal/apperr"
	"github.com/yourusername/fuel-tracker/internal/session"
	"github.com/yourusername/fuel-tracker/internal/user"
)

// ログイン失敗時の応答。メールアドレスの存在有無を区別できないよう、
// どの失敗経路でも同一のメッセージを返します。
const genericLoginMessage = "Invalid email or password"

// Handler は認証エンドポイントのハンドラー群です。
type Handler struct {
	users    user.Repository
	sessions *session.Manager
	hasher   *PasswordHasher
}

// NewHandler は Handler を作成します。
func NewHandler(users user.Repository, sessions *session.Manager, hasher *PasswordHasher) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
	}
}

type registerRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
	DisplayName     *string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register は POST /api/auth/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		apperr.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	if errs := validateRegister(&req); len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	ctx := c.Request.Context()

	// 事前チェックは親切なエラーのためのもので、最終的な正は一意制約
	if _, err := h.users.FindByEmail(ctx, req.Email); err == nil {
		apperr.Abort(c, apperr.Conflict("Email already in use"))
		return
	} else if !errors.Is(err, user.ErrNotFound) {
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	created, err := h.users.Create(ctx, normalizeEmail(req.Email), hash, req.DisplayName)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			apperr.Abort(c, apperr.Conflict("Email already in use"))
			return
		}
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	fresh, err := h.sessions.Regenerate(ctx, session.FromContext(c))
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	if err := h.sessions.BindUser(ctx, fresh, created.ID); err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	h.sessions.SetCookie(c, fresh)

	c.JSON(http.StatusCreated, gin.H{"user": created.Public()})
}

// Login は POST /api/auth/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		apperr.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	if errs := validateLogin(&req); len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	ctx := c.Request.Context()

	u, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			apperr.Abort(c, apperr.Unauthorized(genericLoginMessage))
			return
		}
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	if !h.hasher.Verify(req.Password, u.PasswordHash) {
		apperr.Abort(c, apperr.Unauthorized(genericLoginMessage))
		return
	}

	fresh, err := h.sessions.Regenerate(ctx, session.FromContext(c))
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	if err := h.sessions.BindUser(ctx, fresh, u.ID); err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	h.sessions.SetCookie(c, fresh)

	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

// Logout は POST /api/auth/logout のハンドラーです。
// 匿名セッションに対しても成功（冪等）とします。
func (h *Handler) Logout(c *gin.Context) {
	sess := session.FromContext(c)
	if sess != nil {
		if err := h.sessions.Destroy(c.Request.Context(), sess); err != nil {
			apperr.Abort(c, apperr.Internal(err))
			return
		}
	}
	h.sessions.ClearCookie(c)

	c.Status(http.StatusNoContent)
}

// Me は GET /api/auth/me のハンドラーです。
func (h *Handler) Me(c *gin.Context) {
	sess := session.FromContext(c)
	if !sess.Authenticated() {
		apperr.Abort(c, apperr.Unauthorized("Unauthorized"))
		return
	}

	u, err := h.users.FindByID(c.Request.Context(), *sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// 紐付いたユーザーが既に存在しない場合も未認証として扱う
			apperr.Abort(c, apperr.Unauthorized("Unauthorized"))
			return
		}
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

// LoginRateKey はログインのレート制限キー（IPと正規化メールの組）を返します。
func LoginRateKey(c *gin.Context) string {
	var req loginRequest
	_ = c.ShouldBindBodyWithJSON(&req)
	return c.ClientIP() + "|login|" + normalizeEmail(req.Email)
}

// RegisterRateKey は登録のレート制限キー（IPのみ）を返します。
func RegisterRateKey(c *gin.Context) string {
	return c.ClientIP() + "|register"
}
