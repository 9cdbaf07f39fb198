package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

type claimsContextKey struct{}

// ginClaimsKey is the gin.Context key the guard stores verified claims under.
const ginClaimsKey = "claims"

// ContextWithClaims attaches verified token claims to the context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the verified claims, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	if ctx == nil {
		return Claims{}, false
	}
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}

// ClaimsFromGin returns the claims the guard stored on the gin context.
func ClaimsFromGin(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(ginClaimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
