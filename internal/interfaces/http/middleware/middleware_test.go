package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/identity"
	redisinfra "github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSecurity = config.SecurityConfig{
	SessionCookieName: "session_id",
	SessionCookieTTL:  time.Hour,
}

func testJWT() *auth.JWTManager {
	return auth.NewJWTManager(config.JWTConfig{
		Secret:            "test-secret-that-is-at-least-32-characters",
		Issuer:            "storefront-test",
		AccessTokenExpiry: time.Hour,
	})
}

func bearer(t *testing.T, userID uint, admin bool) string {
	t.Helper()
	token, err := testJWT().GenerateAccessToken(userID, "buyer@example.com", admin)
	require.NoError(t, err)
	return "Bearer " + token
}

// identityRouter echoes the resolved identity as "<kind>|<String()>"
func identityRouter() *gin.Engine {
	r := gin.New()
	r.Use(OptionalAuthMiddleware(testJWT()), Session(testSecurity))
	r.GET("/whoami", func(c *gin.Context) {
		id := GetIdentity(c)
		token, _ := GetSessionToken(c)
		c.String(http.StatusOK, id.Kind().String()+"|"+token)
	})
	return r
}

func TestSessionIssuesCookieForNewGuest(t *testing.T) {
	w := httptest.NewRecorder()
	identityRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_id", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.NoError(t, uuid.Validate(cookies[0].Value))
	assert.Equal(t, "guest|"+cookies[0].Value, w.Body.String())
}

func TestSessionReusesValidCookie(t *testing.T) {
	token := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: token})

	w := httptest.NewRecorder()
	identityRouter().ServeHTTP(w, req)

	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, "guest|"+token, w.Body.String())
}

func TestSessionReplacesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "not-a-uuid"})

	w := httptest.NewRecorder()
	identityRouter().ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "not-a-uuid", cookies[0].Value)
	assert.Equal(t, "guest|"+cookies[0].Value, w.Body.String())
}

func TestSessionPrefersSignedInUser(t *testing.T) {
	token := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, 7, false))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: token})

	w := httptest.NewRecorder()
	identityRouter().ServeHTTP(w, req)

	assert.Empty(t, w.Result().Cookies())
	// the guest token stays available for merging
	assert.Equal(t, "user|"+token, w.Body.String())
}

func TestGetIdentityWithoutSession(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, identity.KindNone, GetIdentity(c).Kind())
	_, ok := GetSessionToken(c)
	assert.False(t, ok)
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(testJWT()), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		email, _ := GetUserEmailFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "email": email})
	})
	r.GET("/admin", AuthMiddleware(testJWT()), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Token abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"valid token", "/me", bearer(t, 7, false), http.StatusOK},
		{"admin route as buyer", "/admin", bearer(t, 7, false), http.StatusForbidden},
		{"admin route as admin", "/admin", bearer(t, 1, true), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHENTICATED"`)
			}
		})
	}
}

func TestOptionalAuthIgnoresInvalidToken(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuthMiddleware(testJWT()), func(c *gin.Context) {
		_, ok := GetUserIDFromContext(c)
		if ok {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-or-forged")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRateLimit(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	r := gin.New()
	r.Use(RateLimit(2, redisinfra.NewClient(rdb), logger.Discard()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, hit().Code)
	w := hit()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = hit()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	mr.Close()
	assert.Equal(t, http.StatusOK, hit().Code, "limiter fails open")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, uuid.Validate(w.Body.String()))
	assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.SecurityConfig{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		CORSAllowedMethods: []string{"GET", "POST"},
		CORSAllowedHeaders: []string{"Content-Type"},
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
