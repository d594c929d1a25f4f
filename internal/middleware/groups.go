package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// RequireAdmin restricts a route to admins (superuser, Admins, or System
// Admins).
func RequireAdmin() gin.HandlerFunc {
	return requirePredicate(authz.IsAdmin)
}

// RequireAdminsGroup restricts a route to strict Admins members.
func RequireAdminsGroup() gin.HandlerFunc {
	return requirePredicate(authz.IsAdminsGroup)
}

// RequireSystemLevel restricts a route to system-level users. This gates
// the system-user management surface.
func RequireSystemLevel() gin.HandlerFunc {
	return requirePredicate(authz.IsSystemLevelUser)
}

func requirePredicate(allowed func(*authz.Subject) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allowed(Subject(c)) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
