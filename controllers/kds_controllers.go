package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type KDSController struct {
	Hub      *kds.Hub
	Policy   *policy.Engine
	upgrader websocket.Upgrader
}

// NewKDSController accepts websocket handshakes from the given origins; an
// empty list accepts any origin.
func NewKDSController(hub *kds.Hub, engine *policy.Engine, origins []string) *KDSController {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &KDSController{
		Hub:    hub,
		Policy: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return len(allowed) == 0 || allowed[r.Header.Get("Origin")]
			},
		},
	}
}

// KDSHandler -> endpoint WebSocket untuk event realtime
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role, err := middlewares.RoleFrom(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !kc.Policy.Can(role, policy.OrdersRead) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	kc.Hub.RegisterClient(ws, role)
	utils.InfoLogger.WithField("role", role).Info("Realtime client connected")

	// Baca pesan sampai client disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kc.Hub.UnregisterClient(ws)
}
