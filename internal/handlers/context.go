package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/auditctx"
	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/middleware"
	appErrors "github.com/charlesng35/hrmatrix/pkg/errors"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

// requestContext returns the request context carrying the caller's origin for audit entries,
// with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	ctx := context.Background()
	if req := c.Request; req != nil {
		ctx = req.Context()
		ctx = auditctx.WithOrigin(ctx, auditctx.Origin{
			IPAddress: c.ClientIP(),
			UserAgent: req.UserAgent(),
		})
	}
	return ctx
}

// identityFrom returns the authenticated identity or writes a 401 and reports false.
func identityFrom(c *gin.Context) (iauth.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return iauth.Identity{}, false
	}
	return identity, true
}
