package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func adminRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuth(token))
	r.GET("/secret", func(c *gin.Context) {
		c.String(http.StatusOK, "uid=%v", c.MustGet("userID"))
	})
	return r
}

func TestAdminAuth_ValidToken(t *testing.T) {
	r := adminRouter("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "uid=admin" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestAdminAuth_Rejections(t *testing.T) {
	r := adminRouter("s3cret")

	cases := []struct {
		name, header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic s3cret"},
		{"wrong token", "Bearer nope"},
		{"token as prefix", "Bearer s3cret-and-more"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secret", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if got := w.Header().Get("WWW-Authenticate"); got == "" {
				t.Fatalf("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAdminAuth_EmptyTokenDisablesAPI(t *testing.T) {
	r := adminRouter("")

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer ") // even an empty bearer must fail
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when ADMIN_TOKEN unset", w.Code)
	}
}
