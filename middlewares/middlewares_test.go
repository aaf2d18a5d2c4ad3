package middlewares

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()
	utils.SetJWTSecret("middleware-test-secret")
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func guardedRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware())
	r.DELETE("/tables/1", RequireCapability(policy.Default(), policy.TablesDelete), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		role, err := RoleFrom(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, role)
	})
	return r
}

func bearer(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	r := guardedRouter()

	w := serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, 3, policy.RoleWaiter))
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, policy.RoleWaiter, w.Body.String())
}

func TestRequireCapability(t *testing.T) {
	r := guardedRouter()

	req := httptest.NewRequest(http.MethodDelete, "/tables/1", nil)
	req.Header.Set("Authorization", bearer(t, 3, policy.RoleCashier))
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	req = httptest.NewRequest(http.MethodDelete, "/tables/1", nil)
	req.Header.Set("Authorization", bearer(t, 1, policy.RoleManager))
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

func TestRequireCapabilityWithoutRole(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireCapability(policy.Default(), policy.MenuRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/ws", WebSocketAuthMiddleware(), func(c *gin.Context) {
		role, _ := RoleFrom(c)
		c.String(http.StatusOK, role)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/ws", nil)).Code)

	token, err := utils.GenerateToken(2, policy.RoleChef)
	require.NoError(t, err)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, policy.RoleChef, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(0.001, 2).RateLimit())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		return req
	}
	assert.Equal(t, http.StatusOK, serve(r, newReq("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, newReq("10.0.0.1")).Code)
	w := serve(r, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, serve(r, newReq("10.0.0.2")).Code, "buckets are per client")
}

func TestRateLimiterSweepsIdleVisitorsPeriodically(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	start := rl.lastSweep

	for i := 0; i < 100; i++ {
		rl.limiterFor(fmt.Sprintf("10.0.1.%d", i), start)
	}
	rl.limiterFor("10.0.2.1", start.Add(rl.idle/2))
	require.Len(t, rl.visitors, 101)

	// First sweep is due: the batch seen at start has gone idle.
	sweep := start.Add(rl.idle + time.Second)
	rl.limiterFor("10.0.2.2", sweep)
	assert.Len(t, rl.visitors, 2)
	assert.Equal(t, sweep, rl.lastSweep)

	// 10.0.2.1 is idle by now, but the next sweep is not due yet.
	rl.limiterFor("10.0.2.3", sweep.Add(rl.idle/2))
	assert.Len(t, rl.visitors, 3)
	assert.Equal(t, sweep, rl.lastSweep)

	rl.limiterFor("10.0.2.4", sweep.Add(rl.idle+time.Second))
	assert.Len(t, rl.visitors, 2)
	assert.Contains(t, rl.visitors, "10.0.2.3")
	assert.Contains(t, rl.visitors, "10.0.2.4")
}

func TestLoggerMiddlewareRequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggerMiddleware(), SecurityHeaders())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
