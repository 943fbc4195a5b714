package mw

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/auth"
)

// principalKey is the gin context key holding the resolved principal.
const principalKey = "principal"

// BearerToken extracts the credential from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Require resolves the request's bearer credential and denies the
// request unless the resolved kind is in the allowed set. Missing,
// unknown, and wrong-kind credentials all collapse to 401; only a store
// failure during resolution yields 500.
func Require(resolver *auth.Resolver, allowed ...auth.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Printf("credential resolution failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credential store unavailable"})
			return
		}

		if !auth.Authorize(principal, allowed...) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Require. The zero
// Principal (KindNone) is returned when no auth middleware ran.
func PrincipalFrom(c *gin.Context) auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}
	}
	p, _ := v.(auth.Principal)
	return p
}
