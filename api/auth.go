package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Principal is the authenticated caller, carried on the request context
// rather than read from any ambient state.
type Principal struct {
	Name  string
	Staff bool
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// RequireStaff guards staff-only endpoints with the configured API key and
// attaches a staff principal to the request context.
func RequireStaff(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff access is not configured"})
			return
		}
		if c.GetHeader("X-API-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		ctx := WithPrincipal(c.Request.Context(), Principal{Name: "staff", Staff: true})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
