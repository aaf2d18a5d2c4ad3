package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type AdminController struct {
	Orders *services.OrderService
	Tables *services.TableService
}

func NewAdminController(orders *services.OrderService, tables *services.TableService) *AdminController {
	return &AdminController{Orders: orders, Tables: tables}
}

// GetDashboardStats mengambil statistik untuk dashboard, ?day=YYYY-MM-DD
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.RespondDomainError(c, apperror.Validation("invalid day %q, want YYYY-MM-DD", raw))
			return
		}
		day = parsed
	}
	sum, err := ac.Orders.Summary(c.Request.Context(), ac.Tables, day)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"summary":      sum,
		"revenue_text": utils.FormatVND(sum.Revenue),
	})
}
