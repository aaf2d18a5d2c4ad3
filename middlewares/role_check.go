package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// RequireCapability lets the request through only when the caller's role is
// granted capability by the policy engine.
func RequireCapability(engine *policy.Engine, capability policy.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := RoleFrom(c)
		if err != nil {
			utils.RespondDomainError(c, apperror.Wrap(apperror.CodeUnauthorized, "unauthorized", err))
			return
		}
		if !engine.Can(role, capability) {
			utils.RespondDomainError(c, apperror.New(apperror.CodeForbidden, string(capability)+" access required").
				WithMetadata("role", role))
			return
		}
		c.Next()
	}
}
