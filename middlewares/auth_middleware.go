package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Context keys set by the auth middlewares.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondDomainError(c, apperror.New(apperror.CodeUnauthorized, "authorization header missing"))
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondDomainError(c, apperror.New(apperror.CodeUnauthorized, "authorization header must use the Bearer scheme"))
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil || claims == nil {
			utils.RespondDomainError(c, apperror.Wrap(apperror.CodeUnauthorized, "invalid or expired token", err))
			return
		}
		if claims.UserID == 0 {
			utils.RespondDomainError(c, apperror.New(apperror.CodeUnauthorized, "invalid user id in token"))
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RoleFrom reads the role stored by the auth middlewares.
func RoleFrom(c *gin.Context) (string, error) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", errors.New("role not found in context")
	}
	role, ok := v.(string)
	if !ok {
		return "", errors.New("invalid role type in context")
	}
	return role, nil
}

// Unauthorized aborts with a plain 401 for handlers outside the JSON API.
func Unauthorized(c *gin.Context) {
	c.AbortWithStatus(http.StatusUnauthorized)
}
