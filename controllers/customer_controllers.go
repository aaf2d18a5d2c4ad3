package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CustomerController struct {
	Loyalty *services.LoyaltyService
}

func NewCustomerController(loyalty *services.LoyaltyService) *CustomerController {
	return &CustomerController{Loyalty: loyalty}
}

type customerRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

// GetAllCustomers -> ?q= mencari nama atau nomor telepon
func (cc *CustomerController) GetAllCustomers(c *gin.Context) {
	customers, err := cc.Loyalty.ListCustomers(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of customers", customers)
}

func (cc *CustomerController) GetCustomerByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	customer, err := cc.Loyalty.GetCustomer(c.Request.Context(), id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", customer)
}

func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := cc.Loyalty.CreateCustomer(c.Request.Context(), services.CustomerInput{Name: req.Name, Phone: req.Phone})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.InfoLogger.WithField("customer_id", customer.ID).Info("Customer created")
	utils.RespondJSON(c, http.StatusCreated, "Customer created", customer)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := cc.Loyalty.UpdateCustomer(c.Request.Context(), id, services.CustomerInput{Name: req.Name, Phone: req.Phone})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer updated", customer)
}

func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := cc.Loyalty.DeleteCustomer(c.Request.Context(), id); err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer deleted", gin.H{"id": id})
}

// GetPoints -> saldo poin, tier dan riwayat ledger
func (cc *CustomerController) GetPoints(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	balance, err := cc.Loyalty.GetBalance(ctx, id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	history, err := cc.Loyalty.History(ctx, id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer points", gin.H{
		"customer_id": id,
		"balance":     balance,
		"tier":        services.TierFor(balance),
		"history":     history,
	})
}

// AddPoints -> {delta, reason, type: EARNED|SPENT}
func (cc *CustomerController) AddPoints(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Delta  int64  `json:"delta"`
		Reason string `json:"reason"`
		Type   string `json:"type"`
	}
	if !bindJSON(c, &req) {
		return
	}
	typ := strings.ToUpper(strings.TrimSpace(req.Type))
	if typ == "" {
		typ = models.PointsEarned
	}
	entry, customer, err := cc.Loyalty.AddPoints(c.Request.Context(), id, req.Delta, req.Reason, typ)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Points recorded", gin.H{
		"entry":    entry,
		"customer": customer,
	})
}
