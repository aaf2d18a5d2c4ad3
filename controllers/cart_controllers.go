package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// CartController replays cart edits against the live catalog so terminals
// show the same lines and totals the order service will commit.
type CartController struct {
	Catalog *services.CatalogService
	Orders  *services.OrderService
}

func NewCartController(catalog *services.CatalogService, orders *services.OrderService) *CartController {
	return &CartController{Catalog: catalog, Orders: orders}
}

type cartOperation struct {
	Op       string `json:"op"`
	MenuID   uint   `json:"menuId"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type cartPreviewRequest struct {
	OrderID    *uint           `json:"orderId"`
	Operations []cartOperation `json:"operations"`
}

type cartSubmitRequest struct {
	TableID    uint            `json:"tableId" binding:"required"`
	OrderID    *uint           `json:"orderId"`
	CustomerID *uint           `json:"customerId"`
	Notes      string          `json:"notes"`
	Operations []cartOperation `json:"operations"`
}

type cartPreviewResponse struct {
	Lines         []cart.PricedLine `json:"lines"`
	Total         int64             `json:"total"`
	TotalText     string            `json:"total_text"`
	Rejected      []uint            `json:"rejected"`
	LoadedOrderID uint              `json:"loaded_order_id,omitempty"`
}

// replay applies ops in order and returns the menu ids AddLine refused.
func replay(cb *cart.Cart, ops []cartOperation) ([]uint, error) {
	rejected := []uint{}
	for _, op := range ops {
		switch strings.ToLower(op.Op) {
		case "add":
			if !cb.AddLine(op.MenuID) {
				rejected = append(rejected, op.MenuID)
			}
		case "set":
			if committed := cb.CommittedQuantity(op.MenuID); committed > 0 && op.Quantity < committed {
				return nil, apperror.Conflict("menu item %d has %d already on the order, tab lines cannot be reduced",
					op.MenuID, committed).WithMetadata("menu_id", fmt.Sprint(op.MenuID))
			}
			if !cb.SetQuantity(op.MenuID, op.Quantity) {
				rejected = append(rejected, op.MenuID)
			}
		case "note":
			cb.SetNotes(op.MenuID, op.Notes)
		case "clear":
			cb.Clear()
		default:
			return nil, apperror.Validation("unknown cart operation %q", op.Op)
		}
	}
	return rejected, nil
}

func (cc *CartController) newCart(c *gin.Context) (*cart.Cart, bool) {
	catalog, err := cc.Catalog.Catalog(c.Request.Context())
	if err != nil {
		utils.RespondDomainError(c, err)
		return nil, false
	}
	return cart.New(catalog), true
}

// loadOrder seeds cb from the open order orderID.
func (cc *CartController) loadOrder(c *gin.Context, cb *cart.Cart, orderID uint) bool {
	order, err := cc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		utils.RespondDomainError(c, err)
		return false
	}
	if !order.IsOpen() {
		utils.RespondDomainError(c, apperror.Conflict("order %s is completed", order.OrderNumber))
		return false
	}
	services.LoadOrder(cb, order)
	return true
}

// Preview -> POST /pos/cart/preview. With orderId the cart starts from that
// open order's lines.
func (cc *CartController) Preview(c *gin.Context) {
	var req cartPreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	cb, ok := cc.newCart(c)
	if !ok {
		return
	}
	if req.OrderID != nil && !cc.loadOrder(c, cb, *req.OrderID) {
		return
	}
	rejected, err := replay(cb, req.Operations)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}

	total := cb.Total()
	utils.RespondJSON(c, http.StatusOK, "Cart preview", cartPreviewResponse{
		Lines:         cb.Priced(),
		Total:         total,
		TotalText:     utils.FormatVND(total),
		Rejected:      rejected,
		LoadedOrderID: cb.LoadedOrderID,
	})
}

// Submit -> POST /pos/cart/submit. The staged lines are committed as a new
// order. With orderId the cart starts from that open order exactly as Preview
// does, and only the quantities added on top of it are appended.
func (cc *CartController) Submit(c *gin.Context) {
	var req cartSubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	cb, ok := cc.newCart(c)
	if !ok {
		return
	}
	if req.OrderID != nil && !cc.loadOrder(c, cb, *req.OrderID) {
		return
	}
	if _, err := replay(cb, req.Operations); err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	if cb.Len() == 0 {
		utils.RespondDomainError(c, apperror.Validation("cart is empty"))
		return
	}
	lines := services.OrderLines(cb)
	if len(lines) == 0 {
		utils.RespondDomainError(c, apperror.Validation("cart adds nothing to order %d", cb.LoadedOrderID))
		return
	}
	order, err := cc.Orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		TableID:     req.TableID,
		Lines:       lines,
		CustomerID:  req.CustomerID,
		Notes:       req.Notes,
		OpenOrderID: req.OrderID,
	})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Cart submitted", order)
}
