// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. The middleware verifies a
// JWT from the Authorization header and stashes the resolved user identity in
// the Gin context under "userID", where handlers and other middleware (rate
// limiting, idempotency) pick it up.
//
// A request without an Authorization header passes through unauthenticated;
// downstream handlers fall back to the demo identity. A request that presents
// a token which fails verification is rejected with 401, since an explicit
// but invalid credential is more likely an integration bug than an anonymous
// caller.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier validates a bearer token and returns the user ID it names.
type TokenVerifier interface {
	VerifyToken(token string) (userID string, err error)
}

// Auth returns a Gin middleware that authenticates requests via the
// Authorization: Bearer header using the given verifier.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		if raw == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "malformed Authorization header",
			})
			return
		}

		uid, err := v.VerifyToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "invalid or expired token",
			})
			return
		}

		c.Set("userID", uid)
		c.Next()
	}
}
