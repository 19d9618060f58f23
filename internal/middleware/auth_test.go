package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"anon-chat-server/internal/auth"
)

func newAuthTestRouter(cfg auth.TokenConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireAuth(cfg), func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userID": userID})
	})
	return r
}

func TestRequireAuth_ValidToken(t *testing.T) {
	cfg := auth.DefaultTokenConfig("test-secret")
	token, err := auth.CreateToken("user-1", cfg)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	r := newAuthTestRouter(cfg)
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := newAuthTestRouter(auth.DefaultTokenConfig("test-secret"))
	req := httptest.NewRequest("GET", "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_BadToken(t *testing.T) {
	r := newAuthTestRouter(auth.DefaultTokenConfig("test-secret"))
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
