package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/fuel-tracker/internal/apperr"
	"github.com/yourusername/fuel-tracker/internal/csrf"
	"github.com/yourusername/fuel-tracker/internal/ratelimit"
	"github.com/yourusername/fuel-tracker/internal/session"
	"github.com/yourusername/fuel-tracker/internal/user"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// fakeUserRepo は user.Repository のインメモリ実装です。
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

var _ user.Repository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) Create(_ context.Context, email, passwordHash string, displayName *string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return nil, user.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// authEnv は本番と同じ順序でミドルウェアを配線したテスト環境です。
type authEnv struct {
	router  *gin.Engine
	manager *session.Manager
	users   *fakeUserRepo
}

func newAuthEnv(t *testing.T, loginLimit int) *authEnv {
	t.Helper()
	users := newFakeUserRepo()
	env := newAuthEnvWith(t, users, loginLimit)
	env.users = users
	return env
}

func newAuthEnvWith(t *testing.T, users user.Repository, loginLimit int) *authEnv {
	t.Helper()

	manager := session.NewManager(session.NewMemoryStore(), session.ManagerOptions{
		Secret:     "test_secret",
		TTL:        time.Hour,
		CookieName: "sid",
	})
	handler := NewHandler(users, manager, NewPasswordHasher(bcrypt.MinCost))
	limiter := ratelimit.NewMemoryLimiter()
	logger := zap.NewNop()

	router := gin.New()
	router.Use(apperr.ErrorHandler(logger, false))
	api := router.Group("/api", manager.Middleware())
	authRoutes := api.Group("/auth")
	authRoutes.GET("/csrf", csrf.TokenHandler)
	authRoutes.POST("/register",
		ratelimit.Middleware(limiter, 20, 15*time.Minute, RegisterRateKey, logger, "Too many registrations. Please try again later."),
		csrf.Guard(),
		handler.Register,
	)
	authRoutes.POST("/login",
		ratelimit.Middleware(limiter, loginLimit, 15*time.Minute, LoginRateKey, logger, "Too many login attempts. Please try again later."),
		csrf.Guard(),
		handler.Login,
	)
	authRoutes.POST("/logout", csrf.Guard(), handler.Logout)
	authRoutes.GET("/me", handler.Me)

	return &authEnv{router: router, manager: manager}
}

// client はクッキーとCSRFトークンを持ち回るテスト用クライアントです。
type client struct {
	t      *testing.T
	env    *authEnv
	cookie *http.Cookie
	token  string
}

func (e *authEnv) newClient(t *testing.T) *client {
	t.Helper()
	c := &client{t: t, env: e}

	// 最初のリクエストで匿名セッションとCSRFトークンを受け取る
	w := c.do(http.MethodGet, "/api/auth/csrf", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	c.token = body.CSRFToken
	return c
}

func (c *client) do(method, path string, payload any) *httptest.ResponseRecorder {
	c.t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set(csrf.Header, c.token)
	}

	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, req)

	// セッションクッキーの更新を追従する
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "sid" {
			if ck.MaxAge < 0 {
				c.cookie = nil
			} else {
				c.cookie = &http.Cookie{Name: ck.Name, Value: ck.Value}
			}
		}
	}
	return w
}

// refreshToken はセッション再生成後に新しいCSRFトークンを取得します。
func (c *client) refreshToken() {
	c.t.Helper()
	w := c.do(http.MethodGet, "/api/auth/csrf", nil)
	require.Equal(c.t, http.StatusOK, w.Code)

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &body))
	c.token = body.CSRFToken
}

func registerPayload(email string) gin.H {
	return gin.H{
		"email":           email,
		"password":        "pass1234",
		"confirmPassword": "pass1234",
	}
}

func TestRegister(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		User user.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alex@example.com", body.User.Email)
	assert.NotEqual(t, uuid.Nil, body.User.ID)

	// ハッシュはどの表現にも含めない
	assert.NotContains(t, w.Body.String(), "password")

	// 登録直後から認証済みとして扱われる
	w = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("Alex@Example.COM"))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		User user.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// メールアドレスは小文字の正規形で保存・返却する
	assert.Equal(t, "alex@example.com", body.User.Email)

	// 入力時の大文字小文字に関わらずログインできる
	other := env.newClient(t)
	login := other.do(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alex@example.com",
		"password": "pass1234",
	})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestRegisterValidationListsAllFields(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	w := c.do(http.MethodPost, "/api/auth/register", gin.H{
		"email":           "not-an-email",
		"password":        "short",
		"confirmPassword": "other",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Code   string             `json:"code"`
		Errors []apperr.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeValidation, body.Code)
	assert.Len(t, body.Errors, 3)
}

func TestRegisterDuplicateEmailIsCaseInsensitive(t *testing.T) {
	env := newAuthEnv(t, 10)

	c := env.newClient(t)
	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	other := env.newClient(t)
	w = other.do(http.MethodPost, "/api/auth/register", registerPayload("ALEX@EXAMPLE.COM"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already in use")
}

// racingUserRepo は事前チェックの後、挿入前に同じメールが登録された状況を
// 再現します。検索は常に不在を報告し、挿入は一意制約で拒否されます。
type racingUserRepo struct {
	*fakeUserRepo
}

func (r *racingUserRepo) FindByEmail(context.Context, string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (r *racingUserRepo) Create(context.Context, string, string, *string) (*user.User, error) {
	return nil, user.ErrEmailTaken
}

func TestRegisterDuplicateSlippingPastPrecheck(t *testing.T) {
	env := newAuthEnvWith(t, &racingUserRepo{newFakeUserRepo()}, 10)
	c := env.newClient(t)

	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))

	// 事前チェックを通過しても一意制約由来の失敗は同じ 409 になる
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":"CONFLICT","message":"Email already in use"}`, w.Body.String())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newAuthEnv(t, 10)

	c := env.newClient(t)
	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	attacker := env.newClient(t)
	wrongPassword := attacker.do(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alex@example.com",
		"password": "wrong-pass1",
	})
	unknownEmail := attacker.do(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "nobody@example.com",
		"password": "wrong-pass1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// メールアドレスの存在有無を区別できないよう、ボディはバイト単位で一致させる
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginRegeneratesSession(t *testing.T) {
	env := newAuthEnv(t, 10)

	c := env.newClient(t)
	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	w = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	c.refreshToken()
	anonymousCookie := c.cookie.Value
	anonymousToken := c.token

	w = c.do(http.MethodPost, "/api/auth/login", gin.H{
		"email":    "alex@example.com",
		"password": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// セッション固定攻撃の防止：ログイン前のIDは引き継がない
	assert.NotEqual(t, anonymousCookie, c.cookie.Value)

	// 旧セッション由来のCSRFトークンも使えない
	c.token = anonymousToken
	w = c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newAuthEnv(t, 10)

	c := env.newClient(t)
	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	loggedInCookie := c.cookie.Value

	w = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, c.cookie)

	// 破棄済みクッキーの再提示は匿名扱い
	c.cookie = &http.Cookie{Name: "sid", Value: loggedInCookie}
	w = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	// 匿名セッションでのログアウトも成功
	w := c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMeRequiresAuthentication(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	w := c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRejectsDeletedUser(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		User user.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	env.users.remove(body.User.ID)

	w = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRateLimitKeyedPerEmail(t *testing.T) {
	env := newAuthEnv(t, 2)
	c := env.newClient(t)

	payload := gin.H{"email": "alex@example.com", "password": "wrong-pass1"}
	for i := 0; i < 2; i++ {
		w := c.do(http.MethodPost, "/api/auth/login", payload)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := c.do(http.MethodPost, "/api/auth/login", payload)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many login attempts")

	// 同一IPでも別メールのキーは独立
	w = c.do(http.MethodPost, "/api/auth/login", gin.H{"email": "other@example.com", "password": "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRequiresCSRFToken(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)
	c.token = ""

	w := c.do(http.MethodPost, "/api/auth/register", registerPayload("alex@example.com"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid CSRF token")
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	env := newAuthEnv(t, 10)
	c := env.newClient(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(c.cookie)
	req.Header.Set(csrf.Header, c.token)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperr.CodeInvalidInput)
}
