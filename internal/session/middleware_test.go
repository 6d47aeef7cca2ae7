package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/fuel-tracker/internal/apperr"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newMiddlewareRouter(manager *Manager) *gin.Engine {
	router := gin.New()
	router.Use(apperr.ErrorHandler(zap.NewNop(), false))
	router.Use(manager.Middleware())
	router.GET("/whoami", func(c *gin.Context) {
		sess := FromContext(c)
		if sess == nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": sess.ID})
	})
	router.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c)})
	})
	return router
}

func TestMiddlewareIssuesAnonymousSession(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	router := newMiddlewareRouter(manager)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "sid" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
}

func TestMiddlewareReusesExistingSession(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	router := newMiddlewareRouter(manager)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, first.Code)

	var cookie *http.Cookie
	for _, ck := range first.Result().Cookies() {
		if ck.Name == "sid" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)

	second := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: cookie.Value})
	router.ServeHTTP(second, req)

	require.Equal(t, http.StatusOK, second.Code)
	// 同一セッションが復元されるためIDは変わらない
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestMiddlewareReplacesTamperedCookie(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	router := newMiddlewareRouter(manager)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged.deadbeef"})
	router.ServeHTTP(w, req)

	// 署名の合わないクッキーは匿名セッションで置き換える
	assert.Equal(t, http.StatusOK, w.Code)

	var replaced bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "sid" && ck.Value != "forged.deadbeef" {
			replaced = true
		}
	}
	assert.True(t, replaced)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	router := newMiddlewareRouter(manager)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthorized")
}
