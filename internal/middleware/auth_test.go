package middleware

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func tokenFor(t *testing.T, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func serve(r *gin.Engine, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthMiddleware(secret), func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "garbage"))
	assert.Equal(t, http.StatusOK, serve(r, tokenFor(t, model.Learner)))
}

func TestAuthMiddlewareRejectsOtherSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthMiddleware("another-secret"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, tokenFor(t, model.Admin)))
}

func TestRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthMiddleware(secret), RoleMiddleware(model.Instructor), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, tokenFor(t, model.Learner)))
	assert.Equal(t, http.StatusOK, serve(r, tokenFor(t, model.Instructor)))
	// 管理员拥有全部权限
	assert.Equal(t, http.StatusOK, serve(r, tokenFor(t, model.Admin)))
}

type activityRecorder struct {
	mu    sync.Mutex
	users []string
	done  chan struct{}
}

func (a *activityRecorder) TouchActivity(userID string, at time.Time) error {
	a.mu.Lock()
	a.users = append(a.users, userID)
	a.mu.Unlock()
	close(a.done)
	return nil
}

func TestActivityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &activityRecorder{done: make(chan struct{})}
	r := gin.New()
	r.GET("/x", AuthMiddleware(secret), ActivityMiddleware(rec), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, tokenFor(t, model.Learner)))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("activity not recorded")
	}
	rec.mu.Lock()
	assert.Len(t, rec.users, 1)
	rec.mu.Unlock()
}
