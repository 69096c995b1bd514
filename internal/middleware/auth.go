package middleware

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/pkg/errors"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

const (
	CtxIdentityKey = "authIdentity"
	CtxUserIDKey   = "userID"
	CtxCompanyKey  = "companyID"
)

// IdentityResolver turns a bearer token into the identity of a current user.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (iauth.Identity, error)
}

// Auth enforces bearer authentication. Each request re-reads the user behind the token so
// role changes and removals take effect immediately.
func Auth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if stdErrors.Is(err, iauth.ErrUnauthenticated) || stdErrors.Is(err, iauth.ErrInvalidIdentity) {
				c.Header("WWW-Authenticate", "Bearer")
				response.Error(c, errors.ErrUnauthorized)
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}

		c.Set(CtxIdentityKey, identity)
		c.Set(CtxUserIDKey, identity.UserID)
		c.Set(CtxCompanyKey, identity.CompanyID)

		c.Next()
	}
}

// IdentityFrom returns the identity attached by Auth.
func IdentityFrom(c *gin.Context) (iauth.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return iauth.Identity{}, false
	}
	identity, ok := v.(iauth.Identity)
	if !ok || identity.Validate() != nil {
		return iauth.Identity{}, false
	}
	return identity, true
}
