// Package middleware holds the gin middleware of the development backend.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/spendsync/internal/auth"
)

// Context keys set by RequireAuth.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// GetUserID returns the authenticated user ID, or "" before RequireAuth.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetEmail returns the authenticated user's email, or "".
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// RequireAuth validates the bearer token and aborts with 401 when it is
// missing or invalid.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": auth.ErrMissingToken.Error()})
			return
		}

		claims, err := jwtManager.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
