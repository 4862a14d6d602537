package middleware

import (
	"net/http"
	"strings"

	"github.com/ebdesignwerks/quotebackend/utils"
	"github.com/gin-gonic/gin"
)

// OperatorAuth only lets through requests carrying a bearer token signed
// with secret and holding the operator role. An empty secret closes the
// route entirely.
func OperatorAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "operator access is not configured"})
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.ValidateToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}
		if claims.Role != utils.RoleOperator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "operator role required"})
			return
		}

		c.Set("operator", claims.Subject)
		c.Next()
	}
}
