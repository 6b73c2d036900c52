// internal/middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// SessionResolver maps a session cookie to its user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID uuid.UUID) (*models.User, error)
}

type Authenticator struct {
	sessions   SessionResolver
	cookieName string
}

func NewAuthenticator(sessions SessionResolver, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = "session_id"
	}
	return &Authenticator{
		sessions:   sessions,
		cookieName: cookieName,
	}
}

// authenticate tries the session cookie first and falls back to a bearer
// token. It returns the translation key to report when both fail.
func (a *Authenticator) authenticate(c *gin.Context) (bool, string) {
	if cookie, err := c.Cookie(a.cookieName); err == nil && cookie != "" {
		if sessionID, err := uuid.Parse(cookie); err == nil {
			if user, err := a.sessions.ResolveSession(c.Request.Context(), sessionID); err == nil {
				c.Set("user_id", user.ID.String())
				c.Set("user_email", user.Email)
				c.Set("user_role", string(user.Role))
				c.Set("session_id", sessionID.String())
				return true, ""
			}
		}
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return false, i18n.KeyAuthRequired
	}

	tokenParts := strings.SplitN(authHeader, " ", 2)
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return false, i18n.KeyAuthInvalidToken
	}

	claims, err := utils.ValidateJWT(tokenParts[1])
	if err != nil {
		return false, i18n.KeyAuthTokenExpired
	}

	c.Set("user_id", claims.UserID)
	c.Set("user_email", claims.Email)
	c.Set("user_role", claims.Role)
	return true, ""
}

func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, key := a.authenticate(c)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), key))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when it can and never rejects.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		a.authenticate(c)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.IsAdmin(c) {
			utils.ForbiddenResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAdminAccessDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}
