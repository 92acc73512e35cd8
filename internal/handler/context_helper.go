package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edupay-dashboard/internal/middleware"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/response"
)

func identityFromContext(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(middleware.ContextIdentityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}

// writeError renders err, pointing unauthenticated callers at the login page.
func writeError(c *gin.Context, err error) {
	if appErrors.IsCode(err, appErrors.ErrUnauthenticated.Code) {
		middleware.Unauthenticated(c, err)
		return
	}
	response.Error(c, err, middleware.ExtractMeta(c))
}
