package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const (
	principalContextKey = "rentspace.principal"
	// UserHeader carries the caller id resolved by the identity provider in front of the API.
	UserHeader = "X-User-ID"
)

type principal struct {
	ID string
}

// Identity reads the caller from UserHeader. Requests without it stay anonymous.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(UserHeader)); id != "" {
			c.Set(principalContextKey, principal{ID: id})
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "caller identity required"))
		return principal{}, false
	}
	return p, true
}
