package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// WebSocketAuthMiddleware authenticates the upgrade request with ?token=,
// browsers cannot set an Authorization header on websocket handshakes.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			Unauthorized(c)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			Unauthorized(c)
			return
		}

		c.Set(CtxRole, claims.Role)
		c.Set(CtxUserID, claims.UserID)
		c.Next()
	}
}
