package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Guard enforces bearer tokens on every request it wraps. Rejections are terminal.
func Guard(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			reject(c, err)
			return
		}
		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			reject(c, err)
			return
		}
		c.Set(ginClaimsKey, claims)
		c.Request = c.Request.WithContext(ContextWithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("bearer "):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func reject(c *gin.Context, err error) {
	message := "invalid token"
	if errors.Is(err, ErrMissingToken) {
		message = "missing bearer token"
	}
	c.Header("WWW-Authenticate", `Bearer realm="presence"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
