package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fertilizer-advisor/internal/domain"
)

// UserIDKey is the gin context key holding the authenticated user ID.
const UserIDKey = "user_id"

// TokenVerifier checks a bearer token and returns its user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	return strings.TrimSpace(token), found
}

func unauthorized(c *gin.Context, details string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, domain.NewAPIError(
		domain.ErrCodeAuthentication,
		"Not authorized",
		details,
		c.GetString(CorrelationIDKey),
	))
}

// Authenticate resolves the bearer token into UserIDKey. A present but
// invalid token is always rejected; a missing token is rejected only when
// required is set.
func Authenticate(verifier TokenVerifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			if c.GetHeader("Authorization") != "" {
				unauthorized(c, "invalid token format")
				return
			}
			if required {
				unauthorized(c, "missing authorization token")
				return
			}
			c.Next()
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
