package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

type orderItemRequest struct {
	MenuID   uint   `json:"menuId"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type createOrderRequest struct {
	TableID    uint               `json:"tableId" binding:"required"`
	OrderItems []orderItemRequest `json:"orderItems"`
	CustomerID *uint              `json:"customerId"`
	Notes      string             `json:"notes"`
	Discount   int64              `json:"discount"`
	OrderID    *uint              `json:"orderId"`
}

func toLines(items []orderItemRequest) []services.LineInput {
	lines := make([]services.LineInput, len(items))
	for i, it := range items {
		lines[i] = services.LineInput{MenuID: it.MenuID, Quantity: it.Quantity, Notes: it.Notes}
	}
	return lines
}

// GetAllOrders -> list orders terbaru dulu, filter ?tableId= & ?status=
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	tableID, ok := queryID(c, "tableId")
	if !ok {
		return
	}
	orders, err := oc.Orders.ListOrders(c.Request.Context(), services.OrderFilter{
		TableID: tableID,
		Status:  c.Query("status"),
	})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// CreateOrder membuka order baru di meja, atau menambah item ke order yang
// sedang terbuka bila orderId dikirim.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		TableID:     req.TableID,
		Lines:       toLines(req.OrderItems),
		CustomerID:  req.CustomerID,
		Notes:       req.Notes,
		Discount:    req.Discount,
		OpenOrderID: req.OrderID,
	})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	if req.OrderID != nil {
		utils.RespondJSON(c, http.StatusOK, "Items added to order", order)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created successfully", order)
}

// AddOrderItems -> POST /orders/:id/items
func (oc *OrderController) AddOrderItems(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		OrderItems []orderItemRequest `json:"orderItems"`
		Version    *uint              `json:"version"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.AddItems(c.Request.Context(), id, toLines(req.OrderItems), req.Version)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Items added to order", order)
}

// TransferOrder -> PATCH /orders/:id {tableId, version?}
func (oc *OrderController) TransferOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		TableID uint  `json:"tableId" binding:"required"`
		Version *uint `json:"version"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.TransferTable(c.Request.Context(), id, req.TableID, req.Version)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order transferred", order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := oc.Orders.DeleteOrder(c.Request.Context(), id); err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", gin.H{"id": id})
}
