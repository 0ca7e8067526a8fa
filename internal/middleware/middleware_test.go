// internal/middleware/middleware_test.go
package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/tests"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPolicyTable(t *testing.T) {
	for _, capability := range AllCapabilities {
		assert.True(t, Allowed("admin", capability), capability)
	}

	assert.True(t, Allowed("artist", CapCatalogManage))
	assert.True(t, Allowed("artist", CapCodesIssue))
	assert.True(t, Allowed("artist", CapCatalogRead))
	assert.False(t, Allowed("artist", CapPurchaseRedeem))
	assert.False(t, Allowed("artist", CapContentDownload))
	assert.False(t, Allowed("artist", CapUsersManage))

	assert.True(t, Allowed("client", CapCatalogRead))
	assert.True(t, Allowed("client", CapPurchaseRedeem))
	assert.True(t, Allowed("client", CapContentDownload))
	assert.True(t, Allowed("client", CapContentStream))
	assert.False(t, Allowed("client", CapCodesIssue))
	assert.False(t, Allowed("client", CapCatalogManage))

	assert.False(t, Allowed("", CapCatalogRead))
	assert.False(t, Allowed("superuser", CapCatalogRead))
}

type stubSessions struct {
	err     error
	userID  uuid.UUID
	tokenID string
}

func (s *stubSessions) ValidateSession(_ context.Context, userID uuid.UUID, tokenID string) error {
	s.userID = userID
	s.tokenID = tokenID
	return s.err
}

func protectedRouter(capability Capability) *gin.Engine {
	return sessionRouter(capability, nil)
}

func sessionRouter(capability Capability, sessions SessionValidator) *gin.Engine {
	r := gin.New()
	r.GET("/p", AuthRequired(sessions), Require(capability), func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.String(http.StatusOK, userID.String())
	})
	return r
}

func request(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAndRequire(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	r := protectedRouter(CapCodesIssue)

	artistID := uuid.New()
	artistToken, err := utils.GenerateJWT(artistID, "artist", "artist", 1)
	require.NoError(t, err)
	clientToken, err := utils.GenerateJWT(uuid.New(), "client", "client", 1)
	require.NoError(t, err)

	w := request(r, http.MethodGet, "/p", artistToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, artistID.String(), w.Body.String())

	assert.Equal(t, http.StatusForbidden, request(r, http.MethodGet, "/p", clientToken).Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/p", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/p", "not-a-token").Code)

	expired, err := utils.GenerateJWT(artistID, "artist", "artist", -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/p", expired).Code)
}

func TestAuthRequiredChecksSession(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	userID := uuid.New()
	token, err := utils.GenerateJWT(userID, "client", "client", 1)
	require.NoError(t, err)

	sessions := &stubSessions{}
	r := sessionRouter(CapCatalogRead, sessions)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/p", token).Code)
	assert.Equal(t, userID, sessions.userID)
	assert.NotEmpty(t, sessions.tokenID, "tokens carry a jti")

	sessions.err = services.ErrAccountDisabled
	w := request(r, http.MethodGet, "/p", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ACCOUNT_DISABLED")

	sessions.err = services.ErrTokenRevoked
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/p", token).Code)

	sessions.err = services.ErrUserNotFound
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/p", token).Code)

	sessions.err = errors.New("connection reset")
	assert.Equal(t, http.StatusInternalServerError, request(r, http.MethodGet, "/p", token).Code)
}

func TestAuthRequiredExposesTokenID(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	token, err := utils.GenerateJWT(uuid.New(), "client", "client", 1)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/t", AuthRequired(nil), func(c *gin.Context) {
		tokenID, expiresAt, ok := utils.GetTokenFromContext(c)
		require.True(t, ok)
		assert.NotEmpty(t, tokenID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, request(r, http.MethodGet, "/t", token).Code)
}

func TestMemoryLimiter(t *testing.T) {
	limiter := NewMemoryLimiter(rate.Every(time.Hour), 2)
	defer limiter.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryLimiter(rate.Every(time.Hour), 1)
	defer limiter.Close()

	r := gin.New()
	r.GET("/x", RateLimit(limiter, KeyByIP), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, request(r, http.MethodGet, "/x", "").Code)
	w := request(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRateLimitFailsOpenWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	limiter := NewRedisLimiter(client, "test", 1, time.Minute)

	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)

	r := gin.New()
	r.GET("/x", RateLimit(limiter, KeyByUser), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusNoContent, request(r, http.MethodGet, "/x", "").Code)
}

func TestRedisLimiterWindowKey(t *testing.T) {
	limiter := NewRedisLimiter(nil, "redeem", 10, time.Minute)
	limiter.now = func() time.Time { return time.Unix(120, 0) }
	assert.Equal(t, "ratelimit:redeem:user:1:2", limiter.windowKey("user:1"))

	limiter.now = func() time.Time { return time.Unix(179, 0) }
	assert.Equal(t, "ratelimit:redeem:user:1:2", limiter.windowKey("user:1"))
}

func TestParseAcceptLanguage(t *testing.T) {
	assert.Equal(t, "fr", parseAcceptLanguage("fr-CA,fr;q=0.9,en;q=0.8", "en"))
	assert.Equal(t, "en", parseAcceptLanguage("en-US", "fr"))
	assert.Equal(t, "en", parseAcceptLanguage("de-DE", "en"))
	assert.Equal(t, "fr", parseAcceptLanguage("", "fr"))
}

func TestAuditLogMiddleware(t *testing.T) {
	db := tests.NewTestDB(t)
	userID := uuid.New()
	itemID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", userID); c.Next() })
	r.Use(AuditLogMiddleware(db))
	r.POST("/v1/purchases/:id", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/v1/purchases", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := bytes.NewBufferString(`{"code":"SECRET123456","item_id":"x","password":"hunter2","new_password":"Hunter3!x"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/purchases/"+itemID.String(), body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/purchases", nil))

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1, "GET requests are not audited")

	entry := logs[0]
	assert.Equal(t, "POST /v1/purchases/:id", entry.Action)
	assert.Equal(t, "purchases", entry.ResourceType)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, itemID, *entry.ResourceID)
	assert.Equal(t, "[REDACTED]", entry.NewValues["code"])
	assert.Equal(t, "[REDACTED]", entry.NewValues["password"])
	assert.Equal(t, "[REDACTED]", entry.NewValues["new_password"])
	assert.Equal(t, "x", entry.NewValues["item_id"])
}
