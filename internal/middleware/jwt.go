package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/service"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
	"github.com/pacific-edu/pacemis-api/pkg/response"
)

// Context keys for the authenticated request state.
const (
	// ContextSubjectKey stores the *authz.Subject for the request.
	ContextSubjectKey = "currentSubject"
	// ContextAffiliationKey stores the subject's authz.SchoolSet.
	ContextAffiliationKey = "currentAffiliation"
)

// Authenticate validates the bearer token and rebuilds the permission
// context from storage on every request. Tokens carry identity only; the
// groups, profile and affiliation are always current, so a revoked role is
// gone on the very next call.
func Authenticate(auth *service.AuthService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		subject, err := users.Subject(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !authz.HasAppAccess(subject) {
			response.Error(c, appErrors.ErrNoAppAccess)
			c.Abort()
			return
		}

		affiliation, err := users.Affiliation(c.Request.Context(), subject.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSubjectKey, subject)
		c.Set(ContextAffiliationKey, affiliation)
		c.Next()
	}
}

// Subject extracts the permission context set by Authenticate. Returns nil
// when the middleware did not run.
func Subject(c *gin.Context) *authz.Subject {
	if v, ok := c.Get(ContextSubjectKey); ok {
		if s, ok := v.(*authz.Subject); ok {
			return s
		}
	}
	return nil
}

// Affiliation extracts the subject's school set set by Authenticate.
func Affiliation(c *gin.Context) authz.SchoolSet {
	if v, ok := c.Get(ContextAffiliationKey); ok {
		if s, ok := v.(authz.SchoolSet); ok {
			return s
		}
	}
	return authz.SchoolSet{}
}
