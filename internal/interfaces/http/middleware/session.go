// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/identity"
)

const (
	ctxIdentity     = "identity"
	ctxSessionToken = "session_token"
)

// Session resolves the cart owner for the request. An authenticated user is
// Registered; anyone else is Anonymous under the session cookie, which is
// issued on first visit. Must run after the auth middleware.
func Session(cfg config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.SessionCookieName)
		if err != nil || uuid.Validate(token) != nil {
			token = ""
		}
		if token != "" {
			c.Set(ctxSessionToken, token)
		}

		if userID, ok := GetUserIDFromContext(c); ok {
			c.Set(ctxIdentity, identity.Registered(userID))
			c.Next()
			return
		}

		if token == "" {
			token = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.SessionCookieName, token, int(cfg.SessionCookieTTL.Seconds()), "/", "", cfg.SecureCookies, true)
			c.Set(ctxSessionToken, token)
		}
		c.Set(ctxIdentity, identity.Anonymous(token))
		c.Next()
	}
}

// GetIdentity returns the identity resolved by Session
func GetIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	return identity.Identity{}
}

// GetSessionToken returns the guest session token carried by the request
func GetSessionToken(c *gin.Context) (string, bool) {
	token := c.GetString(ctxSessionToken)
	return token, token != ""
}
