package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/response"
)

// Context keys set by RequireSession.
const (
	ContextIdentityKey = "currentIdentity"
	ContextLoginURLKey = "loginURL"
)

// SessionGuard is the part of the session the guard consults.
type SessionGuard interface {
	Authenticated(ctx context.Context) bool
	Identity() (models.Identity, bool)
}

// RequireSession blocks requests while no identity is held. Rejections carry
// the login location so clients can redirect.
func RequireSession(guard SessionGuard, loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextLoginURLKey, loginURL)
		if guard == nil || !guard.Authenticated(c.Request.Context()) {
			Unauthenticated(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		if identity, ok := guard.Identity(); ok {
			c.Set(ContextIdentityKey, identity)
		}
		c.Next()
	}
}

// Unauthenticated writes a 401 pointing at the login location.
func Unauthenticated(c *gin.Context, err error) {
	meta := map[string]interface{}{}
	if loginURL := c.GetString(ContextLoginURLKey); loginURL != "" {
		meta["login_url"] = loginURL
	}
	response.Error(c, err, meta)
}
