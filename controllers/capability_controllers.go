package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// CapabilityController tells clients what the caller may do. Front-ends
// render from this list instead of keeping their own role tables.
type CapabilityController struct {
	Policy *policy.Engine
}

func NewCapabilityController(engine *policy.Engine) *CapabilityController {
	return &CapabilityController{Policy: engine}
}

func (cc *CapabilityController) GetCapabilities(c *gin.Context) {
	role, err := middlewares.RoleFrom(c)
	if err != nil {
		utils.RespondDomainError(c, apperror.Wrap(apperror.CodeUnauthorized, "unauthorized", err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Capabilities", gin.H{
		"role":         role,
		"capabilities": cc.Policy.Capabilities(role),
	})
}
