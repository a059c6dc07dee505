package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/harborview/timetable-api/internal/models"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/response"
)

// Administrator roles recognized by the API.
const (
	RoleAdmin     = "ADMIN"
	RoleScheduler = "SCHEDULER"
	RoleViewer    = "VIEWER"
)

// RequireRoles blocks requests whose token lacks one of the allowed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
