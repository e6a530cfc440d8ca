// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the single-role admin guard. The admin API (message,
// user, and channel listings) is protected by one static bearer token set at
// deploy time; there is no per-operator account model in this service.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth returns a middleware that requires "Authorization: Bearer <token>"
// to match the configured admin token. Comparison is constant-time.
//
// When token is empty the admin API is disabled outright: every request is
// rejected, so a missing ADMIN_TOKEN cannot silently open the endpoints.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			abortUnauthorized(c, "admin API disabled")
			return
		}
		h := c.GetHeader("Authorization")
		provided, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set("userID", "admin")
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="admin"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
