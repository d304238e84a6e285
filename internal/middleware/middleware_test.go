package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"agritrace/internal/models"
	"agritrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, remote string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestLoginRateLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", LoginRateLimiter(3), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, "10.0.0.1:5000"))
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "10.0.0.1:5000"))
	// limits are per client
	assert.Equal(t, http.StatusNoContent, serve(r, "10.0.0.2:5000"))
}

func TestLoginRateLimiterDisabled(t *testing.T) {
	r := gin.New()
	r.POST("/login", LoginRateLimiter(0), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, "10.0.0.1:5000"))
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name  string
		actor *service.Actor
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &service.Actor{ID: "F1", Role: models.RoleFarmer}, http.StatusForbidden},
		{"listed role", &service.Actor{ID: "D1", Role: models.RoleDistributor}, http.StatusOK},
		{"admin", &service.Actor{ID: "A", Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				if tc.actor != nil {
					c.Set(actorKey, *tc.actor)
				}
			}, RequireRole(models.RoleDistributor), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestTokenFrom(t *testing.T) {
	cases := map[string]func(*http.Request){
		"header": func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
		"query":  func(r *http.Request) { r.URL.RawQuery = "token=abc" },
		"cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: tokenCookie, Value: "abc"}) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = req
			assert.Equal(t, "abc", tokenFrom(c))
		})
	}
}
