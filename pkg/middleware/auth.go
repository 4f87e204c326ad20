package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pennywise/pennywise/backend/go-services/internal/auth"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
)

// UserKey is the gin context key holding the authenticated *models.User.
const UserKey = "user"

// TokenVerifier validates a bearer token and returns the identity id it names.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// IdentityLoader fetches the current identity record; (nil, nil) when absent.
type IdentityLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SessionGuard returns a Gin middleware that authenticates the request from
// its Bearer token and attaches the identity under UserKey.
func SessionGuard(tokens TokenVerifier, loader IdentityLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, auth.ErrMissingToken)
			return
		}

		id, err := tokens.Verify(token)
		if err != nil {
			reject(c, auth.TokenError(err))
			return
		}

		u, err := loader.FindByID(c.Request.Context(), id)
		if err != nil {
			logger.Errorf("session guard: load identity %s: %v", id, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal Server Error"})
			return
		}
		if u == nil {
			reject(c, auth.ErrIdentityNotFound)
			return
		}

		c.Set(UserKey, u.Public())
		c.Next()
	}
}

// bearerToken expects exactly 'Bearer <token>' with a single-word token.
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}

func reject(c *gin.Context, err error) {
	var e *auth.Error
	if !errors.As(err, &e) {
		e = auth.ErrTokenMalformed
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": e.Message, "code": e.Kind})
}

// CurrentUser returns the identity attached by SessionGuard.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}
