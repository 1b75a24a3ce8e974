// README: Bearer-token auth middleware and caller accessors.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/infra"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

const (
	callerIDKey   = "caller_id"
	callerRoleKey = "caller_role"
)

// Auth rejects requests without a valid bearer token and stores the caller on the context.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		id, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerIDKey, id.UserID)
		c.Set(callerRoleKey, id.Role)
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only " + string(role) + "s may call this endpoint"})
			return
		}
		c.Next()
	}
}

func CallerID(c *gin.Context) types.ID {
	v, _ := c.Get(callerIDKey)
	id, _ := v.(types.ID)
	return id
}

func CallerRole(c *gin.Context) types.Role {
	v, _ := c.Get(callerRoleKey)
	role, _ := v.(types.Role)
	return role
}
