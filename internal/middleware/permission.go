package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/permissions"
	"github.com/charlesng35/hrmatrix/pkg/errors"
	"github.com/charlesng35/hrmatrix/pkg/metrics"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

// RequirePermission checks that the authenticated caller's role holds permissionID. A denial
// is answered as not found so the response never confirms the resource exists.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.Check(identity.Role, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			response.Error(c, errors.Wrap(err, "permission check failed"))
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, errors.ErrNotFound)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}
